package conversation

import "time"

// Sender — автор записи в переписке.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

// Entry — одна запись переписки. После создания не меняется.
type Entry struct {
	ID        int64
	Sender    Sender
	Text      string
	CreatedAt time.Time
}

// Status — состояние последнего запроса на генерацию.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Lifecycle описывает последний запрос. Поля ImageRef и ErrorMessage
// взаимоисключающие и оба пустые в idle/pending, поэтому значения создаются
// только через конструкторы ниже.
type Lifecycle struct {
	Status       Status
	ImageRef     string
	ErrorMessage string
}

func Idle() Lifecycle    { return Lifecycle{Status: StatusIdle} }
func Pending() Lifecycle { return Lifecycle{Status: StatusPending} }

// Succeeded — запрос завершился картинкой ref.
func Succeeded(ref string) Lifecycle {
	return Lifecycle{Status: StatusSucceeded, ImageRef: ref}
}

// Failed — запрос завершился ошибкой с текстом msg.
func Failed(msg string) Lifecycle {
	return Lifecycle{Status: StatusFailed, ErrorMessage: msg}
}

// normalize убирает поля, которые не положены текущему статусу.
func (l Lifecycle) normalize() Lifecycle {
	switch l.Status {
	case StatusSucceeded:
		return Succeeded(l.ImageRef)
	case StatusFailed:
		return Failed(l.ErrorMessage)
	case StatusPending:
		return Pending()
	default:
		return Idle()
	}
}

// Snapshot — неизменяемый срез состояния для наблюдателей.
type Snapshot struct {
	Entries   []Entry
	Lifecycle Lifecycle
	Version   uint64
}

// LastSystemEntry возвращает последнюю запись от system, если она есть.
func (s Snapshot) LastSystemEntry() (Entry, bool) {
	for i := len(s.Entries) - 1; i >= 0; i-- {
		if s.Entries[i].Sender == SenderSystem {
			return s.Entries[i], true
		}
	}
	return Entry{}, false
}
