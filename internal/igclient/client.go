// Package igclient implements the messaging platform surface over Instagram's
// private direct-messaging API.
package igclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codehamsters/instabot/bot"
)

const defaultBaseURL = "https://i.instagram.com/api/v1"

const defaultUserAgent = "Instagram 269.0.0.18.75 Android"

type Client struct {
	http    *http.Client
	baseURL string
	session Session
}

func New(httpClient *http.Client, baseURL string, session Session) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL = strings.TrimSpace(strings.TrimRight(baseURL, "/"))
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		session: session,
	}
}

func (c *Client) SelfID() string {
	return c.session.UserID()
}

type inboxResponse struct {
	Status string `json:"status"`
	Inbox  struct {
		Threads []threadPayload `json:"threads"`
	} `json:"inbox"`
}

type threadResponse struct {
	Status string        `json:"status"`
	Thread threadPayload `json:"thread"`
}

type threadPayload struct {
	ThreadID     string        `json:"thread_id"`
	IsGroup      bool          `json:"is_group"`
	AdminUserIDs []int64       `json:"admin_user_ids"`
	Users        []userPayload `json:"users"`
	Items        []itemPayload `json:"items"`
}

type userPayload struct {
	PK       int64  `json:"pk"`
	Username string `json:"username"`
}

type itemPayload struct {
	ItemID string `json:"item_id"`
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

type userInfoResponse struct {
	Status string      `json:"status"`
	User   userPayload `json:"user"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (c *Client) ListThreads(ctx context.Context) ([]bot.ThreadDescriptor, error) {
	var out inboxResponse
	if err := c.get(ctx, "/direct_v2/inbox/", nil, &out); err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	if out.Status != "ok" {
		return nil, fmt.Errorf("list threads: status %q", out.Status)
	}
	threads := make([]bot.ThreadDescriptor, 0, len(out.Inbox.Threads))
	for _, item := range out.Inbox.Threads {
		threads = append(threads, descriptorFromPayload(item))
	}
	return threads, nil
}

func (c *Client) FetchMessages(ctx context.Context, threadID string) ([]bot.Message, error) {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return nil, fmt.Errorf("thread_id is required")
	}
	var out threadResponse
	if err := c.get(ctx, "/direct_v2/threads/"+url.PathEscape(threadID)+"/", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch messages %s: %w", threadID, err)
	}
	if out.Status != "ok" {
		return nil, fmt.Errorf("fetch messages %s: status %q", threadID, out.Status)
	}
	// Items arrive newest first; the dedup layer depends on that order.
	messages := make([]bot.Message, 0, len(out.Thread.Items))
	for _, item := range out.Thread.Items {
		messages = append(messages, bot.Message{
			ID:       item.ItemID,
			AuthorID: strconv.FormatInt(item.UserID, 10),
			Text:     item.Text,
		})
	}
	return messages, nil
}

func (c *Client) SendMessage(ctx context.Context, threadID, text string) error {
	threadID = strings.TrimSpace(threadID)
	text = strings.TrimSpace(text)
	if threadID == "" {
		return fmt.Errorf("thread_id is required")
	}
	if text == "" {
		return fmt.Errorf("text is required")
	}
	form := url.Values{}
	form.Set("text", text)
	form.Set("thread_ids", `["`+threadID+`"]`)

	var out statusResponse
	if err := c.postForm(ctx, "/direct_v2/threads/broadcast/text/", form, &out); err != nil {
		return fmt.Errorf("send message %s: %w", threadID, err)
	}
	if out.Status != "ok" {
		return fmt.Errorf("send message %s: status %q (%s)", threadID, out.Status, out.Message)
	}
	return nil
}

func (c *Client) ResolveUser(ctx context.Context, userID string) (bot.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return bot.User{}, fmt.Errorf("user_id is required")
	}
	var out userInfoResponse
	if err := c.get(ctx, "/users/"+url.PathEscape(userID)+"/info/", nil, &out); err != nil {
		return bot.User{}, fmt.Errorf("resolve user %s: %w", userID, err)
	}
	if out.Status != "ok" {
		return bot.User{}, fmt.Errorf("resolve user %s: status %q", userID, out.Status)
	}
	return bot.User{
		ID:          strconv.FormatInt(out.User.PK, 10),
		DisplayName: out.User.Username,
	}, nil
}

func descriptorFromPayload(payload threadPayload) bot.ThreadDescriptor {
	admins := make([]string, 0, len(payload.AdminUserIDs))
	for _, id := range payload.AdminUserIDs {
		admins = append(admins, strconv.FormatInt(id, 10))
	}
	members := make([]bot.User, 0, len(payload.Users))
	for _, user := range payload.Users {
		members = append(members, bot.User{
			ID:          strconv.FormatInt(user.PK, 10),
			DisplayName: user.Username,
		})
	}
	return bot.ThreadDescriptor{
		ID:       payload.ThreadID,
		IsGroup:  payload.IsGroup,
		AdminIDs: admins,
		Members:  members,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	userAgent := strings.TrimSpace(c.session.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cookie", "sessionid="+c.session.AuthorizationData.SessionID+"; ds_user_id="+c.session.UserID())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
