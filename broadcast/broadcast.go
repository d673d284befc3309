// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/relicroom/logger"
	"github.com/wfunc/relicroom/session"
)

// Broadcaster delivers framed packets to connected accounts.
type Broadcaster interface {
	BroadcastToUsers(accountIDs []string, msgID uint16, data []byte) error
	BroadcastToAll(msgID uint16, data []byte) error
}

// SessionBroadcaster fans packets out to every session of each account.
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{sessionManager: sessionManager}
}

// BroadcastToUsers sends to every live session of the given accounts. An
// account with no session is skipped; send failures are joined and
// returned after every recipient was tried.
func (b *SessionBroadcaster) BroadcastToUsers(accountIDs []string, msgID uint16, data []byte) error {
	var errs []error
	for _, account := range accountIDs {
		for _, s := range b.sessionManager.GetByAccount(account) {
			if err := s.Send(msgID, data); err != nil {
				logger.Log.Debugw("broadcast send failed", "session_id", s.GetID(), "account_id", account, "error", err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (b *SessionBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	var accounts []string
	seen := make(map[string]bool)
	for _, s := range b.sessionManager.All() {
		if !seen[s.AccountID] {
			seen[s.AccountID] = true
			accounts = append(accounts, s.AccountID)
		}
	}
	return b.BroadcastToUsers(accounts, msgID, data)
}
