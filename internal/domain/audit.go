package domain

import "time"

// AuditEvent описывает запись аудита по заказу. Аудит пишется после
// коммита транзакции; ошибка записи логируется и не влияет на результат
// операции.
type AuditEvent struct {
	OrderID  string
	Type     string
	Detail   string
	Actor    string
	Occurred time.Time
}
