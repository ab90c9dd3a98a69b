package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"coffeebot-service/config"
	"coffeebot-service/services"
	"coffeebot-service/utils"

	"github.com/gin-gonic/gin"
)

// IntentKind classifies the free text that follows the slash command.
type IntentKind int

const (
	IntentRecord IntentKind = iota // add or subtract, delta carries the sign
	IntentShowTop
	IntentShowAll
	IntentHelp
	IntentUnrecognized
)

// Intent is the classified meaning of a command's trailing text.
type Intent struct {
	Kind  IntentKind
	Delta int
}

// ClassifyIntent maps the trailing text of a slash command to an intent.
// Pure classification; the store is never touched here.
func ClassifyIntent(text string) Intent {
	switch text {
	case "":
		return Intent{Kind: IntentRecord, Delta: 1}
	case "help":
		return Intent{Kind: IntentHelp}
	case "count":
		return Intent{Kind: IntentShowTop}
	case "count-all":
		return Intent{Kind: IntentShowAll}
	case "stomach-pump":
		return Intent{Kind: IntentRecord, Delta: -1}
	}
	if n, err := strconv.Atoi(text); err == nil {
		return Intent{Kind: IntentRecord, Delta: n}
	}
	return Intent{Kind: IntentUnrecognized}
}

// CommandHandler serves the slash-command endpoint.
type CommandHandler struct {
	Tally *services.TallyService
	Cfg   *config.Config
}

func NewCommandHandler(tally *services.TallyService, cfg *config.Config) *CommandHandler {
	return &CommandHandler{Tally: tally, Cfg: cfg}
}

// HandleCommand processes one slash command and replies synchronously
func (h *CommandHandler) HandleCommand(c *gin.Context) {
	command := c.PostForm("command")
	text := c.PostForm("text")
	userID := c.PostForm("user_id")
	userName := c.PostForm("user_name")

	// A wrong trigger means a malformed upstream call, not user error.
	if command != h.Cfg.CommandTrigger {
		utils.Reply(c, utils.Ephemeral("Something has gone horribly wrong"))
		return
	}

	intent := ClassifyIntent(text)
	switch intent.Kind {
	case IntentHelp:
		utils.Reply(c, utils.Ephemeral(h.Tally.Help()))
	case IntentShowTop:
		limit := h.Cfg.CountDisplaySize
		h.replySummary(c, &limit)
	case IntentShowAll:
		h.replySummary(c, nil)
	case IntentRecord:
		h.replyRecord(c, userID, userName, intent.Delta)
	default:
		utils.Reply(c, utils.Ephemeral("I'm afraid I don't understand your command. Take another sip and try again."))
	}
}

func (h *CommandHandler) replyRecord(c *gin.Context, userID, userName string, delta int) {
	result, err := h.Tally.Record(c.Request.Context(), userID, userName, delta)
	switch {
	case err == services.ErrAddLimit:
		utils.Reply(c, utils.Ephemeral(fmt.Sprintf("You can't add more than %d coffees at a time", h.Cfg.MaxCoffeeAdd)))
		return
	case err == services.ErrSubtractLimit:
		utils.Reply(c, utils.Ephemeral(fmt.Sprintf("You can't remove more than %d coffees at a time", h.Cfg.MaxCoffeeSubtract)))
		return
	case err != nil:
		utils.Reply(c, utils.Ephemeral(fmt.Sprintf("Something went wrong talking to the ledger: %v", err)))
		return
	}

	utils.Reply(c, utils.Ephemeral(fmt.Sprintf(
		"That's coffee number %d for you today, and number %d for the group today",
		result.UserCount, result.TotalCount)))
}

func (h *CommandHandler) replySummary(c *gin.Context, limit *int) {
	summary, err := h.Tally.Summarize(c.Request.Context(), limit)
	if err != nil {
		utils.Reply(c, utils.Ephemeral(fmt.Sprintf("Something went wrong talking to the ledger: %v", err)))
		return
	}

	blocks := []utils.Block{
		utils.Section(fmt.Sprintf("*Today*, the group has consumed %d coffees", summary.Total)),
	}

	if len(summary.Users) > 0 {
		lines := make([]string, 0, len(summary.Users))
		for _, user := range summary.Users {
			lines = append(lines, fmt.Sprintf("- _%s_ has consumed %d coffees", user.UserName, user.Count))
		}
		blocks = append(blocks, utils.Section(strings.Join(lines, "\n")))
	}

	utils.Reply(c, utils.InChannel(blocks...))
}
