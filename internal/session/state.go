// ABOUTME: Sealed conversation state variants with typed step enums
// ABOUTME: Covers the login gate, password change and the manager, teacher and student engines

package session

import (
	"github.com/2389/coven-gradebook/internal/store"
)

// State is the conversation state of one chat. The set of implementations
// is closed to this package.
type State interface {
	// Name identifies the variant and step for logs, e.g. "teacher/enter_score".
	Name() string
	// Valid reports whether the step is known and its scratch data is present.
	Valid() bool
	// Clone returns a deep copy.
	Clone() State

	sealed()
}

type resetState struct{}

func (resetState) Name() string   { return "reset" }
func (resetState) Valid() bool    { return true }
func (r resetState) Clone() State { return r }
func (resetState) sealed()        {}

// Reset is returned by engines to end the session and start over at the gate.
var Reset State = resetState{}

// IsReset reports whether st is the Reset sentinel.
func IsReset(st State) bool {
	_, ok := st.(resetState)
	return ok
}

// AccountOf returns the authenticated account behind a state. It returns
// false for the gate and the reset sentinel.
func AccountOf(st State) (store.Account, bool) {
	switch s := st.(type) {
	case *PasswordState:
		return s.Account, true
	case *ManagerState:
		return s.Account, true
	case *TeacherState:
		return s.Account, true
	case *StudentState:
		return s.Account, true
	}
	return store.Account{}, false
}

// GateStep is a step of the login gate.
type GateStep string

const (
	ChooseRole  GateStep = "choose_role"
	AskUsername GateStep = "ask_username"
	AskPassword GateStep = "ask_password"
)

func (s GateStep) String() string { return string(s) }

// Valid reports whether s is a known gate step.
func (s GateStep) Valid() bool {
	switch s {
	case ChooseRole, AskUsername, AskPassword:
		return true
	}
	return false
}

// GateState is the unauthenticated login flow.
type GateState struct {
	Step     GateStep
	Role     store.Role
	Username string
}

// NewGate returns the state every new or reset session starts in.
func NewGate() *GateState {
	return &GateState{Step: ChooseRole}
}

func (s *GateState) Name() string { return "gate/" + s.Step.String() }

func (s *GateState) Valid() bool {
	switch s.Step {
	case ChooseRole:
		return true
	case AskUsername:
		return s.Role.Valid()
	case AskPassword:
		return s.Role.Valid() && s.Username != ""
	}
	return false
}

func (s *GateState) Clone() State {
	c := *s
	return &c
}

func (*GateState) sealed() {}

// PasswordState waits for a new password from an authenticated account.
type PasswordState struct {
	Account store.Account
}

func (s *PasswordState) Name() string { return "password/ask_new_password" }
func (s *PasswordState) Valid() bool  { return s.Account.Role.Valid() }

func (s *PasswordState) Clone() State {
	c := *s
	return &c
}

func (*PasswordState) sealed() {}

// ManagerStep is a step of the manager engine.
type ManagerStep string

const (
	ManagerMenu         ManagerStep = "manager_menu"
	CreateReportPeriod  ManagerStep = "create_report_period"
	ViewedReport        ManagerStep = "viewed_report"
	ApproveReportPeriod ManagerStep = "approve_report_period"
	CheckScoresStatus   ManagerStep = "check_scores_status"
	ManagerDecision     ManagerStep = "manager_decision"
)

func (s ManagerStep) String() string { return string(s) }

// Valid reports whether s is a known manager step.
func (s ManagerStep) Valid() bool {
	switch s {
	case ManagerMenu, CreateReportPeriod, ViewedReport, ApproveReportPeriod, CheckScoresStatus, ManagerDecision:
		return true
	}
	return false
}

// ManagerState is the manager engine state. Account.ID is the school id.
type ManagerState struct {
	Account        store.Account
	Step           ManagerStep
	Periods        []store.ReportPeriod
	Incomplete     []store.CompletionStatus
	SelectedPeriod *store.ReportPeriod
}

// NewManager returns the manager main menu state.
func NewManager(acc store.Account) *ManagerState {
	return &ManagerState{Account: acc, Step: ManagerMenu}
}

func (s *ManagerState) Name() string { return "manager/" + s.Step.String() }

func (s *ManagerState) Valid() bool {
	if s.Account.Role != store.RoleManager {
		return false
	}
	switch s.Step {
	case ManagerMenu, CreateReportPeriod, ViewedReport:
		return true
	case ApproveReportPeriod, CheckScoresStatus:
		return len(s.Periods) > 0
	case ManagerDecision:
		return s.SelectedPeriod != nil && len(s.Incomplete) > 0
	}
	return false
}

// ClearScratch drops the data collected by the deeper manager steps.
func (s *ManagerState) ClearScratch() {
	s.Periods = nil
	s.Incomplete = nil
	s.SelectedPeriod = nil
}

func (s *ManagerState) Clone() State {
	c := *s
	c.Periods = cloneSlice(s.Periods)
	c.Incomplete = cloneSlice(s.Incomplete)
	if s.SelectedPeriod != nil {
		p := *s.SelectedPeriod
		c.SelectedPeriod = &p
	}
	return &c
}

func (*ManagerState) sealed() {}

// TeacherStep is a step of the teacher engine.
type TeacherStep string

const (
	TeacherMenu            TeacherStep = "teacher_menu"
	SelectPeriod           TeacherStep = "select_period"
	SelectSubject          TeacherStep = "select_subject"
	ChooseAction           TeacherStep = "choose_action"
	EnterScore             TeacherStep = "enter_score"
	EnterDescription       TeacherStep = "enter_description"
	SelectStudent          TeacherStep = "select_student"
	EnterScoreSingle       TeacherStep = "enter_score_single"
	EnterDescriptionSingle TeacherStep = "enter_description_single"
)

func (s TeacherStep) String() string { return string(s) }

// Valid reports whether s is a known teacher step.
func (s TeacherStep) Valid() bool {
	switch s {
	case TeacherMenu, SelectPeriod, SelectSubject, ChooseAction, EnterScore,
		EnterDescription, SelectStudent, EnterScoreSingle, EnterDescriptionSingle:
		return true
	}
	return false
}

// TeacherState is the teacher engine state.
type TeacherState struct {
	Account  store.Account
	Step     TeacherStep
	Periods  []store.ReportPeriod
	Subjects []store.Subject
	PeriodID int64
	Subject  *store.Subject

	// Score entry. Index walks Students during batch entry; Current is the
	// student being graded. PendingScore is nil when the score was skipped.
	Students     []store.Student
	Index        int
	Current      *store.Student
	PendingScore *float64
}

// NewTeacher returns the teacher main menu state.
func NewTeacher(acc store.Account) *TeacherState {
	return &TeacherState{Account: acc, Step: TeacherMenu}
}

func (s *TeacherState) Name() string { return "teacher/" + s.Step.String() }

func (s *TeacherState) Valid() bool {
	if s.Account.Role != store.RoleTeacher {
		return false
	}
	switch s.Step {
	case TeacherMenu:
		return true
	case SelectPeriod:
		return len(s.Periods) > 0
	case SelectSubject:
		return s.PeriodID != 0 && len(s.Subjects) > 0
	case ChooseAction:
		return s.PeriodID != 0 && s.Subject != nil
	case EnterScore, EnterDescription:
		return s.Subject != nil && s.Index >= 0 && s.Index < len(s.Students) && s.Current != nil
	case SelectStudent:
		return s.Subject != nil && len(s.Students) > 0
	case EnterScoreSingle, EnterDescriptionSingle:
		return s.Subject != nil && s.Current != nil
	}
	return false
}

// ClearEntry drops the score entry scratch data.
func (s *TeacherState) ClearEntry() {
	s.Students = nil
	s.Index = 0
	s.Current = nil
	s.PendingScore = nil
}

func (s *TeacherState) Clone() State {
	c := *s
	c.Periods = cloneSlice(s.Periods)
	c.Subjects = cloneSlice(s.Subjects)
	c.Students = cloneSlice(s.Students)
	if s.Subject != nil {
		sub := *s.Subject
		c.Subject = &sub
	}
	if s.Current != nil {
		st := *s.Current
		c.Current = &st
	}
	if s.PendingScore != nil {
		v := *s.PendingScore
		c.PendingScore = &v
	}
	return &c
}

func (*TeacherState) sealed() {}

// StudentStep is a step of the student engine.
type StudentStep string

const (
	StudentMenu   StudentStep = "student_menu"
	ShowPeriods   StudentStep = "show_periods"
	ViewingReport StudentStep = "viewing_report"
)

func (s StudentStep) String() string { return string(s) }

// Valid reports whether s is a known student step.
func (s StudentStep) Valid() bool {
	switch s {
	case StudentMenu, ShowPeriods, ViewingReport:
		return true
	}
	return false
}

// StudentState is the student engine state. PrevStep is empty when there
// is nowhere to go back to.
type StudentState struct {
	Account  store.Account
	Step     StudentStep
	PrevStep StudentStep
	Periods  []store.ReportPeriod
}

// NewStudent returns the student main menu state.
func NewStudent(acc store.Account) *StudentState {
	return &StudentState{Account: acc, Step: StudentMenu}
}

func (s *StudentState) Name() string { return "student/" + s.Step.String() }

func (s *StudentState) Valid() bool {
	if s.Account.Role != store.RoleStudent {
		return false
	}
	if s.PrevStep != "" && !s.PrevStep.Valid() {
		return false
	}
	switch s.Step {
	case StudentMenu:
		return true
	case ShowPeriods, ViewingReport:
		return len(s.Periods) > 0
	}
	return false
}

func (s *StudentState) Clone() State {
	c := *s
	c.Periods = cloneSlice(s.Periods)
	return &c
}

func (*StudentState) sealed() {}

// MenuFor returns the main menu state of an account's role, or the gate
// when the role is unknown.
func MenuFor(acc store.Account) State {
	switch acc.Role {
	case store.RoleManager:
		return NewManager(acc)
	case store.RoleTeacher:
		return NewTeacher(acc)
	case store.RoleStudent:
		return NewStudent(acc)
	}
	return NewGate()
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
