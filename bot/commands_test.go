package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func newTestDispatcher(client *fakeClient, store Store) *Dispatcher {
	return NewDispatcher(DispatcherOptions{
		Client:        client,
		Store:         store,
		Reconciler:    NewReconciler(store),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		OwnerUsername: "owner",
		Sleep:         instantSleep,
	})
}

func adminThread(t *testing.T, store Store) ThreadDescriptor {
	t.Helper()
	thread := ThreadDescriptor{ID: "t1", IsGroup: true, AdminIDs: []string{"admin"}}
	if _, err := store.Ensure(thread.ID, thread.AdminIDs); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	return thread
}

func TestHandleIgnoresNonAdminSilently(t *testing.T) {
	store := newMemStore()
	client := newFakeClient("self")
	d := newTestDispatcher(client, store)
	thread := adminThread(t, store)

	if err := d.Handle(context.Background(), thread, "stranger", "/setwelcome Hi {}"); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(client.sent) != 0 {
		t.Fatalf("unauthorized command must not reply, sent %v", client.sent)
	}
	state, _ := store.Get("t1")
	if state.WelcomeMessage != DefaultWelcomeTemplate {
		t.Fatalf("unauthorized command mutated state: %q", state.WelcomeMessage)
	}
}

func TestHandleIgnoresNonCommandsAndUnknownCommands(t *testing.T) {
	store := newMemStore()
	client := newFakeClient("self")
	d := newTestDispatcher(client, store)
	thread := adminThread(t, store)

	for _, text := range []string{"hello there", "/frobnicate", ""} {
		if err := d.Handle(context.Background(), thread, "admin", text); err != nil {
			t.Fatalf("Handle(%q) error = %v", text, err)
		}
	}
	if len(client.sent) != 0 {
		t.Fatalf("nothing should be sent, got %v", client.sent)
	}
}

func TestMentionAllBatchesOfFive(t *testing.T) {
	store := newMemStore()
	client := newFakeClient("self")
	d := newTestDispatcher(client, store)
	thread := adminThread(t, store)

	members := make([]string, 0, 12)
	for i := 1; i <= 12; i++ {
		id := fmt.Sprintf("u%02d", i)
		members = append(members, id)
		client.users[id] = User{ID: id, DisplayName: "name" + id}
	}
	if _, err := store.Mutate("t1", func(s *ThreadState) {
		s.Members = members
	}); err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	if err := d.Handle(context.Background(), thread, "admin", "/mentionall"); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(client.sent) != 3 {
		t.Fatalf("sent %d messages, want 3", len(client.sent))
	}
	for i, want := range []int{5, 5, 2} {
		got := len(strings.Fields(client.sent[i].Text))
		if got != want {
			t.Fatalf("batch %d holds %d mentions, want %d: %q", i, got, want, client.sent[i].Text)
		}
	}
}

func TestMentionAllResolveFailureNotifiesOwnerAndContinues(t *testing.T) {
	store := newMemStore()
	client := newFakeClient("self")
	d := newTestDispatcher(client, store)
	thread := adminThread(t, store)

	client.users["u1"] = User{ID: "u1", DisplayName: "one"}
	client.resolveErr["u2"] = fmt.Errorf("blocked")
	client.users["u3"] = User{ID: "u3", DisplayName: "three"}
	if _, err := store.Mutate("t1", func(s *ThreadState) {
		s.Members = []string{"u1", "u2", "u3"}
	}); err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	if err := d.Handle(context.Background(), thread, "admin", "/mentionall"); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	var notice, mentions string
	for _, msg := range client.sent {
		if strings.Contains(msg.Text, "Contact @owner") {
			notice = msg.Text
		} else {
			mentions = msg.Text
		}
	}
	if notice == "" {
		t.Fatalf("resolution failure should notify owner, sent %v", client.sent)
	}
	if mentions != "@one @three" {
		t.Fatalf("mentions = %q, want %q", mentions, "@one @three")
	}
}

func TestSetWelcomeStoresValidatedTemplate(t *testing.T) {
	store := newMemStore()
	client := newFakeClient("self")
	d := newTestDispatcher(client, store)
	thread := adminThread(t, store)

	if err := d.Handle(context.Background(), thread, "admin", "/setwelcome Hey @{} glad you made it"); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	state, _ := store.Get("t1")
	if state.WelcomeMessage != "Hey @{} glad you made it" {
		t.Fatalf("welcome = %q", state.WelcomeMessage)
	}
	if len(client.sent) != 1 || client.sent[0].Text != "Welcome message updated." {
		t.Fatalf("confirmation missing, sent %v", client.sent)
	}
}

func TestSetWelcomeRejectsMalformedTemplate(t *testing.T) {
	store := newMemStore()
	client := newFakeClient("self")
	d := newTestDispatcher(client, store)
	thread := adminThread(t, store)

	if err := d.Handle(context.Background(), thread, "admin", "/setwelcome no placeholder"); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	state, _ := store.Get("t1")
	if state.WelcomeMessage != DefaultWelcomeTemplate {
		t.Fatalf("malformed template was stored: %q", state.WelcomeMessage)
	}
	if len(client.sent) != 1 || !strings.Contains(client.sent[0].Text, "{}") {
		t.Fatalf("usage reply missing, sent %v", client.sent)
	}
}

func TestGetWelcomeSendsCurrentTemplate(t *testing.T) {
	store := newMemStore()
	client := newFakeClient("self")
	d := newTestDispatcher(client, store)
	thread := adminThread(t, store)

	if err := d.Handle(context.Background(), thread, "admin", "/getwelcome"); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(client.sent) != 1 || !strings.Contains(client.sent[0].Text, DefaultWelcomeTemplate) {
		t.Fatalf("getwelcome reply = %v", client.sent)
	}
}

func TestUpdateAdminsConfirmsOnlyOnChange(t *testing.T) {
	store := newMemStore()
	client := newFakeClient("self")
	d := newTestDispatcher(client, store)
	thread := adminThread(t, store)

	if err := d.Handle(context.Background(), thread, "admin", "/updateadmins"); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(client.sent) != 0 {
		t.Fatalf("unchanged admins should stay silent, sent %v", client.sent)
	}

	thread.AdminIDs = []string{"admin", "admin2"}
	if err := d.Handle(context.Background(), thread, "admin", "/updateadmins"); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(client.sent) != 1 || client.sent[0].Text != "Admin list updated." {
		t.Fatalf("confirmation missing, sent %v", client.sent)
	}
	state, _ := store.Get("t1")
	if !state.IsAdmin("admin2") {
		t.Fatalf("admin snapshot not refreshed: %v", state.Admins)
	}
}

func TestHelpListsCommands(t *testing.T) {
	store := newMemStore()
	client := newFakeClient("self")
	d := newTestDispatcher(client, store)
	thread := adminThread(t, store)

	if err := d.Handle(context.Background(), thread, "admin", "/help"); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(client.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(client.sent))
	}
	for _, name := range []string{"/mentionall", "/setwelcome", "/getwelcome", "/updateadmins", "/help"} {
		if !strings.Contains(client.sent[0].Text, name) {
			t.Fatalf("help text missing %s: %q", name, client.sent[0].Text)
		}
	}
}
