package bot

import "slices"

// FilterNew reduces a newest-first history page to the messages that still
// need processing: not authored by the bot itself and strictly newer than the
// watermark. The scan stops at the watermark message without including it.
// The result is oldest first so command side effects apply in the order the
// sender issued them. With no watermark set, every non-self message in the
// page counts as new.
//
// The caller advances the watermark to the id of the last element (the newest
// message) after the batch is processed.
func FilterNew(history []Message, selfID, watermark string) []Message {
	fresh := make([]Message, 0, len(history))
	for _, msg := range history {
		if msg.AuthorID == selfID {
			continue
		}
		if watermark != "" && msg.ID == watermark {
			break
		}
		fresh = append(fresh, msg)
	}
	slices.Reverse(fresh)
	return fresh
}
