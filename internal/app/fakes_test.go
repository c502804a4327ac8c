package app

import (
	"sync"

	"gopkg.in/telebot.v3"
)

type sentMessage struct {
	chatID int64
	text   string
	opts   *telebot.SendOptions
}

// recordingClient captures outbound messages. failFor makes sends to a chat fail.
type recordingClient struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[int64]error
}

func (c *recordingClient) SendMessage(chatID int64, text string, opts *telebot.SendOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.failFor[chatID]; ok {
		return err
	}
	c.sent = append(c.sent, sentMessage{chatID: chatID, text: text, opts: opts})
	return nil
}

func (c *recordingClient) messages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sentMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *recordingClient) last() sentMessage {
	msgs := c.messages()
	if len(msgs) == 0 {
		return sentMessage{}
	}
	return msgs[len(msgs)-1]
}
