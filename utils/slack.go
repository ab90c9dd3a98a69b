package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Slack slash-command response visibility classes.
const (
	ResponseEphemeral = "ephemeral"  // visible only to the caller
	ResponseInChannel = "in_channel" // visible to the whole channel
)

// Message is the reply payload for a slash command.
type Message struct {
	ResponseType string  `json:"response_type"`
	Text         string  `json:"text,omitempty"`
	Blocks       []Block `json:"blocks,omitempty"`
}

// Block is one Slack layout block.
type Block struct {
	Type string     `json:"type"`
	Text *BlockText `json:"text,omitempty"`
}

// BlockText is the text object inside a section block.
type BlockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Ephemeral builds a private text reply
func Ephemeral(text string) Message {
	return Message{
		ResponseType: ResponseEphemeral,
		Text:         text,
	}
}

// InChannel builds a broadcast reply from section blocks
func InChannel(blocks ...Block) Message {
	return Message{
		ResponseType: ResponseInChannel,
		Blocks:       blocks,
	}
}

// Section builds a mrkdwn section block
func Section(text string) Block {
	return Block{
		Type: "section",
		Text: &BlockText{
			Type: "mrkdwn",
			Text: text,
		},
	}
}

// Reply sends a slash-command response. Slack expects 200 regardless of
// the message's meaning; errors are conveyed in the payload itself.
func Reply(c *gin.Context, msg Message) {
	c.JSON(http.StatusOK, msg)
}
