// ABOUTME: Login gate (role, username, password) and the password change flow
// ABOUTME: Successful logins record the chat as the account's contact and open the role's menu

package conversation

import (
	"errors"

	"github.com/2389/coven-gradebook/internal/session"
	"github.com/2389/coven-gradebook/internal/store"
)

var roleChoices = map[string]store.Role{
	"1": store.RoleManager,
	"2": store.RoleTeacher,
	"3": store.RoleStudent,
}

func (s *Service) handleGate(t *turn, st *session.GateState, text string) (session.State, error) {
	switch st.Step {
	case session.ChooseRole:
		role, ok := roleChoices[text]
		if !ok {
			s.say(t, msgChooseRole)
			return st, nil
		}
		st.Role = role
		st.Step = session.AskUsername
		s.say(t, msgAskUsername)
		return st, nil

	case session.AskUsername:
		st.Username = text
		st.Step = session.AskPassword
		s.say(t, msgAskPassword)
		return st, nil

	case session.AskPassword:
		acc, err := s.store.CheckLogin(t.ctx, st.Role, st.Username, text)
		if errors.Is(err, store.ErrInvalidCredentials) {
			t.logger.Info("login rejected", "role", st.Role, "username", st.Username)
			s.say(t, msgBadCredentials)
			s.say(t, msgAskUsername)
			st.Username = ""
			st.Step = session.AskUsername
			return st, nil
		}
		if err != nil {
			t.logger.Error("login failed", "role", st.Role, "error", err)
			s.say(t, msgLoginError)
			return st, nil
		}

		t.logger.Info("login succeeded", "role", acc.Role, "account_id", acc.ID)
		if err := s.store.RegisterContact(t.ctx, acc.Role, acc.ID, t.chatID); err != nil {
			t.logger.Warn("failed to register contact", "role", acc.Role, "account_id", acc.ID, "error", err)
		}
		s.say(t, loginSuccess(*acc))
		s.say(t, menuText(acc.Role))
		return session.MenuFor(*acc), nil
	}
	return st, nil
}

// handlePassword consumes the new password. Student changes are audited
// before the password is replaced; an audit failure aborts the change.
func (s *Service) handlePassword(t *turn, st *session.PasswordState, text string) (session.State, error) {
	acc := st.Account

	if err := s.auditPasswordChange(t, acc); err != nil {
		t.logger.Error("failed to audit password change", "account_id", acc.ID, "error", err)
		s.say(t, msgPasswordFailed)
	} else if err := s.store.ChangePassword(t.ctx, acc.Role, acc.ID, text, t.chatID); err != nil {
		t.logger.Error("failed to change password", "role", acc.Role, "account_id", acc.ID, "error", err)
		s.say(t, msgPasswordFailed)
	} else {
		t.logger.Info("password changed", "role", acc.Role, "account_id", acc.ID)
		s.say(t, msgPasswordChanged)
	}

	s.say(t, menuText(acc.Role))
	return session.MenuFor(acc), nil
}

func (s *Service) auditPasswordChange(t *turn, acc store.Account) error {
	if acc.Role != store.RoleStudent {
		return nil
	}
	return s.store.AppendAuditLog(t.ctx, &store.AuditEntry{
		ActorRole:  acc.Role,
		ActorID:    acc.ID,
		Action:     store.AuditChangePassword,
		TargetType: "account",
		TargetID:   acc.Username,
		Detail: map[string]any{
			"sender": t.sender,
			"chat":   t.chatID,
		},
	})
}
