package bot

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"blendguard/internal/alert"
	"blendguard/internal/deeplink"
	"blendguard/internal/position"
	"blendguard/internal/protection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []alert.AlertPayload
}

func (r *recordingDispatcher) Dispatch(_ context.Context, p alert.AlertPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, p)
}

type recordingAnswerer struct {
	ids []string
	err error
}

func (r *recordingAnswerer) AnswerCallback(_ context.Context, id string) error {
	r.ids = append(r.ids, id)
	return r.err
}

type staticVault struct{}

func (staticVault) Info() protection.VaultInfo {
	return protection.VaultInfo{
		ContractID: "CABCDEFGH1234567890ZYXWVUT",
		Version:    "v1.0",
		Network:    "testnet",
		Status:     "active",
	}
}

func newBot(secret string) (*Bot, *recordingDispatcher) {
	out := &recordingDispatcher{}
	signer := deeplink.NewSigner(secret, "https://app.blendguard.io/")
	return New(position.NewFixedSource(), signer, staticVault{}, out, nil, nil), out
}

func command(text string) Update {
	return Update{Message: &Message{From: &User{ID: 42}, Chat: Chat{ID: 42}, Text: text}}
}

func TestBot_Commands(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		contains string
		buttons  int
	}{
		{name: "start", text: "/start", contains: "Welcome to BlendGuard"},
		{name: "ping", text: "/ping", contains: "pong"},
		{name: "contract", text: "/contract", contains: "CABCDEFGH1234567890ZYXWVUT"},
		{name: "status", text: "/status", contains: "Your Lending Positions", buttons: 1},
		{name: "addressed command", text: "/status@BlendGuardBot", contains: "Risk: 85%", buttons: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, out := newBot("secret")
			require.NoError(t, b.HandleUpdate(context.Background(), command(tt.text)))

			require.Len(t, out.sent, 1)
			msg := out.sent[0]
			assert.Equal(t, "42", msg.Recipient)
			assert.True(t, msg.Raw)
			assert.Contains(t, msg.Message, tt.contains)
			assert.Len(t, msg.Buttons, tt.buttons)
		})
	}
}

func TestBot_IgnoresPlainTextAndUnknownCommands(t *testing.T) {
	b, out := newBot("secret")
	require.NoError(t, b.HandleUpdate(context.Background(), command("hello")))
	require.NoError(t, b.HandleUpdate(context.Background(), command("/unknown")))
	require.NoError(t, b.HandleUpdate(context.Background(), Update{}))
	assert.Empty(t, out.sent)
}

func TestBot_DemoSendsLiquidationAlert(t *testing.T) {
	b, out := newBot("secret")
	require.NoError(t, b.HandleUpdate(context.Background(), command("/demo")))

	require.Len(t, out.sent, 1)
	assert.Equal(t, alert.Critical, out.sent[0].Level)
	assert.Contains(t, out.sent[0].Message, "CABCDEFG...0ZYXWVUT")
	require.Len(t, out.sent[0].Buttons, 1)
	assert.Equal(t, "protect_XLM-123", out.sent[0].Buttons[0][0].CallbackData)
}

func TestBot_ProtectCallbackSendsSignedLink(t *testing.T) {
	b, out := newBot("secret")
	update := Update{CallbackQuery: &CallbackQuery{
		From:    User{ID: 7},
		Message: &Message{Chat: Chat{ID: 99}},
		Data:    "protect_XLM-123",
	}}
	require.NoError(t, b.HandleUpdate(context.Background(), update))

	require.Len(t, out.sent, 1)
	assert.Equal(t, "99", out.sent[0].Recipient)
	link := out.sent[0].Buttons[0][0].URL

	u, err := url.Parse(link)
	require.NoError(t, err)
	pos, user, sig := u.Query().Get("pos"), u.Query().Get("user"), u.Query().Get("sig")
	assert.Equal(t, "XLM-123", pos)
	assert.Equal(t, "7", user)
	assert.True(t, deeplink.NewSigner("secret", "").Verify(pos, user, sig))
}

func TestBot_ProtectCallbackWithoutSecret(t *testing.T) {
	b, out := newBot("")
	err := b.HandleUpdate(context.Background(), Update{CallbackQuery: &CallbackQuery{From: User{ID: 7}, Data: "protect_XLM-123"}})
	assert.ErrorIs(t, err, deeplink.ErrNoSecret)

	require.Len(t, out.sent, 1)
	assert.Equal(t, errorText, out.sent[0].Message)
}

func TestBot_DetailsCallback(t *testing.T) {
	b, out := newBot("secret")
	err := b.HandleUpdate(context.Background(), Update{CallbackQuery: &CallbackQuery{From: User{ID: 7}, Data: "details_ABC-9"}})
	require.NoError(t, err)

	require.Len(t, out.sent, 1)
	assert.Contains(t, out.sent[0].Message, "ABC-9")
	assert.Equal(t, "protect_ABC-9", out.sent[0].Buttons[0][0].CallbackData)
}

func TestBot_MalformedCallback(t *testing.T) {
	b, _ := newBot("secret")
	assert.Error(t, b.HandleUpdate(context.Background(), Update{CallbackQuery: &CallbackQuery{Data: "protect"}}))
	assert.Error(t, b.HandleUpdate(context.Background(), Update{CallbackQuery: &CallbackQuery{Data: "refund_XLM-123"}}))
}

func TestBot_AnswersCallbackQueries(t *testing.T) {
	answerer := &recordingAnswerer{}
	out := &recordingDispatcher{}
	b := New(position.NewFixedSource(), deeplink.NewSigner("secret", ""), staticVault{}, out, answerer, nil)

	update := Update{CallbackQuery: &CallbackQuery{ID: "cb-1", From: User{ID: 7}, Data: "details_XLM-123"}}
	require.NoError(t, b.HandleUpdate(context.Background(), update))
	assert.Equal(t, []string{"cb-1"}, answerer.ids)
	assert.Len(t, out.sent, 1)

	// a failed acknowledgement still lets the reply through
	answerer.err = errors.New("telegram down")
	update.CallbackQuery.ID = "cb-2"
	require.NoError(t, b.HandleUpdate(context.Background(), update))
	assert.Equal(t, []string{"cb-1", "cb-2"}, answerer.ids)
	assert.Len(t, out.sent, 2)
}
