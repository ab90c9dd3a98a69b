package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"coffeebot-service/config"
	"coffeebot-service/models"
	"coffeebot-service/services"
	"coffeebot-service/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		text      string
		wantKind  IntentKind
		wantDelta int
	}{
		{text: "", wantKind: IntentRecord, wantDelta: 1},
		{text: "help", wantKind: IntentHelp},
		{text: "count", wantKind: IntentShowTop},
		{text: "count-all", wantKind: IntentShowAll},
		{text: "stomach-pump", wantKind: IntentRecord, wantDelta: -1},
		{text: "3", wantKind: IntentRecord, wantDelta: 3},
		{text: "0", wantKind: IntentRecord, wantDelta: 0},
		{text: "-2", wantKind: IntentRecord, wantDelta: -2},
		{text: "6", wantKind: IntentRecord, wantDelta: 6},
		{text: "xyz", wantKind: IntentUnrecognized},
		{text: "3 beans", wantKind: IntentUnrecognized},
		{text: "Count", wantKind: IntentUnrecognized},
		{text: " count", wantKind: IntentUnrecognized},
	}

	for _, tt := range tests {
		name := tt.text
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			intent := ClassifyIntent(tt.text)
			if intent.Kind != tt.wantKind || intent.Delta != tt.wantDelta {
				t.Fatalf("ClassifyIntent(%q) = {%v, %d}, want {%v, %d}",
					tt.text, intent.Kind, intent.Delta, tt.wantKind, tt.wantDelta)
			}
		})
	}
}

type commandFixture struct {
	db     *gorm.DB
	router *gin.Engine
}

func newCommandFixture(t *testing.T) *commandFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	clock, err := utils.NewClockWithNow("Australia/Melbourne", func() time.Time {
		return time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
	})
	if err != nil {
		t.Fatalf("creating test clock: %v", err)
	}

	cfg := &config.Config{
		CommandTrigger:    "/coffee",
		MaxCoffeeAdd:      5,
		MaxCoffeeSubtract: 2,
		CountDisplaySize:  5,
	}
	tally := services.NewTallyService(db, clock, cfg.MaxCoffeeAdd, cfg.MaxCoffeeSubtract)
	handler := NewCommandHandler(tally, cfg)

	router := gin.New()
	router.POST("/addCoffee", handler.HandleCommand)

	return &commandFixture{db: db, router: router}
}

func (f *commandFixture) post(t *testing.T, form url.Values) utils.Message {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/addCoffee", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var msg utils.Message
	if err := json.Unmarshal(w.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return msg
}

func coffeeForm(text string) url.Values {
	return url.Values{
		"command":   {"/coffee"},
		"text":      {text},
		"user_id":   {"U1"},
		"user_name": {"alice"},
	}
}

func (f *commandFixture) storedRows(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&models.DrinkEvent{}).Count(&n).Error; err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	return n
}

func TestHandleCommandAddsSingleCoffee(t *testing.T) {
	f := newCommandFixture(t)

	msg := f.post(t, coffeeForm(""))
	if msg.ResponseType != utils.ResponseEphemeral {
		t.Errorf("response_type = %s, want ephemeral", msg.ResponseType)
	}
	want := "That's coffee number 1 for you today, and number 1 for the group today"
	if msg.Text != want {
		t.Errorf("text = %q, want %q", msg.Text, want)
	}
	if f.storedRows(t) != 1 {
		t.Errorf("stored rows = %d, want 1", f.storedRows(t))
	}
}

func TestHandleCommandScenarioAddThreeUndoOne(t *testing.T) {
	f := newCommandFixture(t)

	for i := 0; i < 3; i++ {
		f.post(t, coffeeForm(""))
	}
	msg := f.post(t, coffeeForm("-1"))

	want := "That's coffee number 2 for you today, and number 2 for the group today"
	if msg.Text != want {
		t.Errorf("text = %q, want %q", msg.Text, want)
	}
	if f.storedRows(t) != 2 {
		t.Errorf("stored rows = %d, want 2", f.storedRows(t))
	}
}

func TestHandleCommandStomachPump(t *testing.T) {
	f := newCommandFixture(t)

	f.post(t, coffeeForm("2"))
	msg := f.post(t, coffeeForm("stomach-pump"))

	want := "That's coffee number 1 for you today, and number 1 for the group today"
	if msg.Text != want {
		t.Errorf("text = %q, want %q", msg.Text, want)
	}
}

func TestHandleCommandLimits(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantText string
	}{
		{
			name:     "add limit",
			text:     "6",
			wantText: "You can't add more than 5 coffees at a time",
		},
		{
			name:     "subtract limit",
			text:     "-3",
			wantText: "You can't remove more than 2 coffees at a time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCommandFixture(t)
			msg := f.post(t, coffeeForm(tt.text))
			if msg.ResponseType != utils.ResponseEphemeral {
				t.Errorf("response_type = %s, want ephemeral", msg.ResponseType)
			}
			if msg.Text != tt.wantText {
				t.Errorf("text = %q, want %q", msg.Text, tt.wantText)
			}
			if f.storedRows(t) != 0 {
				t.Errorf("stored rows = %d, want 0", f.storedRows(t))
			}
		})
	}
}

func TestHandleCommandUnrecognized(t *testing.T) {
	f := newCommandFixture(t)

	msg := f.post(t, coffeeForm("xyz"))
	if msg.ResponseType != utils.ResponseEphemeral {
		t.Errorf("response_type = %s, want ephemeral", msg.ResponseType)
	}
	if !strings.Contains(msg.Text, "don't understand") {
		t.Errorf("text = %q, want a didn't-understand message", msg.Text)
	}
	if f.storedRows(t) != 0 {
		t.Errorf("store touched by unrecognized text: %d rows", f.storedRows(t))
	}
}

func TestHandleCommandWrongTrigger(t *testing.T) {
	f := newCommandFixture(t)

	form := coffeeForm("")
	form.Set("command", "/tea")
	msg := f.post(t, form)

	if msg.Text != "Something has gone horribly wrong" {
		t.Errorf("text = %q, want the malformed-trigger message", msg.Text)
	}
	if f.storedRows(t) != 0 {
		t.Errorf("store touched by malformed trigger: %d rows", f.storedRows(t))
	}
}

func TestHandleCommandHelp(t *testing.T) {
	f := newCommandFixture(t)

	msg := f.post(t, coffeeForm("help"))
	if msg.ResponseType != utils.ResponseEphemeral {
		t.Errorf("response_type = %s, want ephemeral", msg.ResponseType)
	}
	if !strings.Contains(msg.Text, "welcome to coffeebot") {
		t.Errorf("text = %q, want the usage text", msg.Text)
	}
}

func TestHandleCommandCount(t *testing.T) {
	f := newCommandFixture(t)

	// Seven users with distinct counts; count shows only the top five
	for i := 1; i <= 7; i++ {
		form := url.Values{
			"command":   {"/coffee"},
			"text":      {fmt.Sprintf("%d", min(i, 5))},
			"user_id":   {fmt.Sprintf("U%d", i)},
			"user_name": {fmt.Sprintf("user%d", i)},
		}
		f.post(t, form)
	}

	msg := f.post(t, coffeeForm("count"))
	if msg.ResponseType != utils.ResponseInChannel {
		t.Errorf("response_type = %s, want in_channel", msg.ResponseType)
	}
	if len(msg.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(msg.Blocks))
	}
	if !strings.Contains(msg.Blocks[0].Text.Text, "the group has consumed") {
		t.Errorf("header = %q, want the group total", msg.Blocks[0].Text.Text)
	}
	lines := strings.Split(msg.Blocks[1].Text.Text, "\n")
	if len(lines) != 5 {
		t.Errorf("ranked lines = %d, want 5", len(lines))
	}
	if !strings.Contains(lines[0], "has consumed 5 coffees") {
		t.Errorf("top line = %q, want a five-coffee consumer", lines[0])
	}
}

func TestHandleCommandCountAll(t *testing.T) {
	f := newCommandFixture(t)

	for i := 1; i <= 7; i++ {
		form := url.Values{
			"command":   {"/coffee"},
			"text":      {""},
			"user_id":   {fmt.Sprintf("U%d", i)},
			"user_name": {fmt.Sprintf("user%d", i)},
		}
		f.post(t, form)
	}

	msg := f.post(t, coffeeForm("count-all"))
	if len(msg.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(msg.Blocks))
	}
	lines := strings.Split(msg.Blocks[1].Text.Text, "\n")
	if len(lines) != 7 {
		t.Errorf("ranked lines = %d, want all 7 users", len(lines))
	}
}

func TestHandleCommandCountEmptyDay(t *testing.T) {
	f := newCommandFixture(t)

	msg := f.post(t, coffeeForm("count"))
	if len(msg.Blocks) != 1 {
		t.Fatalf("blocks = %d, want only the header", len(msg.Blocks))
	}
	if !strings.Contains(msg.Blocks[0].Text.Text, "consumed 0 coffees") {
		t.Errorf("header = %q, want a zero total", msg.Blocks[0].Text.Text)
	}
}
