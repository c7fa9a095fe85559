package twitch

import (
	"ImageChat/internal/service/conversation"
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"go.uber.org/zap"
)

// Config хранит параметры подключения к Twitch IRC.
type Config struct {
	Username string
	OAuth    string // может быть с/без префикса oauth:
	Channel  string // без #, регистр не важен
	Command  string // префикс команды, напр. !draw
}

// Submitter принимает промпт; реализуется оркестратором.
type Submitter interface {
	SubmitPrompt(raw string) bool
}

const spamWindow = 5 * time.Second

var urlRe = regexp.MustCompile(`https?://[^\s]+`)

// ParseCommand выделяет промпт из сообщения вида "<command> <prompt>".
func ParseCommand(command, text string) (string, bool) {
	command = strings.TrimSpace(command)
	text = strings.TrimSpace(text)
	if command == "" || !strings.HasPrefix(strings.ToLower(text), strings.ToLower(command)) {
		return "", false
	}
	rest := text[len(command):]
	// "!drawing" не должен считаться командой "!draw"
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	// URL в промпте не нужны
	prompt := strings.TrimSpace(urlRe.ReplaceAllString(rest, ""))
	if prompt == "" {
		return "", false
	}
	return prompt, true
}

// relay — фильтр сообщений чата и учёт того, чей промпт сейчас выполняется.
type relay struct {
	command   string
	submitter Submitter
	now       func() time.Time

	mu         sync.Mutex
	lastByUser map[string]lastMsg
	author     string // автор выполняющегося промпта
	lastStatus conversation.Status
}

type lastMsg struct {
	text string
	at   time.Time
}

func newRelay(command string, submitter Submitter) *relay {
	return &relay{command: command, submitter: submitter, now: time.Now, lastByUser: map[string]lastMsg{}}
}

// handle отдаёт команду оркестратору; возвращает, был ли промпт принят.
func (r *relay) handle(user, text string) bool {
	user = strings.TrimSpace(user)
	if user == "" {
		return false
	}
	prompt, ok := ParseCommand(r.command, text)
	if !ok {
		return false
	}

	// Антиспам: одинаковый промпт от того же пользователя в течение окна — дропаем
	now := r.now()
	r.mu.Lock()
	if lm, seen := r.lastByUser[user]; seen && lm.text == prompt && now.Sub(lm.at) <= spamWindow {
		r.mu.Unlock()
		return false
	}
	r.lastByUser[user] = lastMsg{text: prompt, at: now}
	r.mu.Unlock()

	if !r.submitter.SubmitPrompt(prompt) {
		return false
	}
	r.mu.Lock()
	r.author = user
	r.mu.Unlock()
	return true
}

// reply возвращает ответ автору промпта при переходе в succeeded/failed.
func (r *relay) reply(snap conversation.Snapshot) (string, bool) {
	status := snap.Lifecycle.Status
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.lastStatus
	r.lastStatus = status

	if prev != conversation.StatusPending {
		return "", false
	}
	if status != conversation.StatusSucceeded && status != conversation.StatusFailed {
		return "", false
	}
	author := r.author
	r.author = ""
	if author == "" {
		return "", false
	}
	entry, ok := snap.LastSystemEntry()
	if !ok {
		return "", false
	}
	return "@" + author + " " + entry.Text, true
}

// Run запускает клиент Twitch IRC: команды чата идут в submitter, результат
// генерации отправляется автору в чат. Функция завершается по отмене ctx.
func Run(ctx context.Context, logger *zap.SugaredLogger, cfg Config, store *conversation.Store, submitter Submitter) error {
	if submitter == nil {
		return nil
	}
	username := strings.ToLower(strings.TrimSpace(cfg.Username))
	token := strings.TrimSpace(cfg.OAuth)
	channel := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "#"))
	if username == "" || token == "" || channel == "" {
		logger.Warnw("Twitch chat not configured: missing env", "username", username != "", "token", token != "", "channel", channel != "")
		return nil
	}
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}

	client := twitchirc.NewClient(username, token)
	rl := newRelay(cfg.Command, submitter)

	client.OnConnect(func() {
		logger.Infow("Twitch connected", "as", username, "join", channel, "command", cfg.Command)
		client.Join(channel)
	})

	client.OnPrivateMessage(func(msg twitchirc.PrivateMessage) {
		if rl.handle(msg.User.Name, msg.Message) {
			logger.Infow("Prompt from Twitch accepted", "user", msg.User.Name)
		}
	})

	if store != nil {
		unsubscribe := store.Subscribe(func(snap conversation.Snapshot) {
			if text, ok := rl.reply(snap); ok {
				// Say пишет в сокет, колбэк Store не блокируем
				go client.Say(channel, text)
			}
		})
		defer unsubscribe()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- client.Connect() }()

	select {
	case <-ctx.Done():
		_ = client.Disconnect()
		// Подождём чуть-чуть корректного завершения
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
		}
		return context.Canceled
	case err := <-errCh:
		if err != nil {
			logger.Errorw("twitch connect error", "error", err)
		}
		return err
	}
}
