package domain

// QuizRules is the stored rule set of a quiz. Every field is optional: a nil
// field means the column was never written and the documented default applies.
type QuizRules struct {
	DurationMinutes        *int     `json:"duration_minutes"`
	MaxRetries             *int     `json:"max_retries"`
	SharingEnabled         *bool    `json:"sharing_enabled"`
	ShowAnswers            *bool    `json:"show_answers"`
	PreventTabSwitch       *bool    `json:"prevent_tab_switch"`
	TabSwitchWarnings      *int     `json:"tab_switch_warnings"`
	PreventCopyPaste       *bool    `json:"prevent_copy_paste"`
	RandomiseQuestions     *bool    `json:"randomise_questions"`
	LeaderboardEnabled     *bool    `json:"leaderboard_enabled"`
	NegativeMarkingEnabled *bool    `json:"negative_marking_enabled"`
	NegativeMarkValue      *float64 `json:"negative_mark_value"`
}

// QuizSettings is the fully-defaulted, editable form of QuizRules.
// DurationMinutes stays a pointer: nil means unlimited.
type QuizSettings struct {
	DurationMinutes        *int    `json:"duration_minutes"`
	RetriesEnabled         bool    `json:"retries_enabled"`
	MaxRetries             int     `json:"max_retries"`
	SharingEnabled         bool    `json:"sharing_enabled"`
	ShowAnswers            bool    `json:"show_answers"`
	PreventTabSwitch       bool    `json:"prevent_tab_switch"`
	TabSwitchWarnings      int     `json:"tab_switch_warnings"`
	PreventCopyPaste       bool    `json:"prevent_copy_paste"`
	RandomiseQuestions     bool    `json:"randomise_questions"`
	LeaderboardEnabled     bool    `json:"leaderboard_enabled"`
	NegativeMarkingEnabled bool    `json:"negative_marking_enabled"`
	NegativeMarkValue      float64 `json:"negative_mark_value"`
}

// SettingsFromRules expands a possibly-partial stored rule set into a
// fully-defaulted settings draft. Defaults: unlimited duration, retries off,
// sharing and answer visibility on, tab-switch guard off with 2 warnings,
// copy-paste and randomisation off, leaderboard on, negative marking off.
func SettingsFromRules(r QuizRules) QuizSettings {
	s := QuizSettings{
		DurationMinutes:        r.DurationMinutes,
		SharingEnabled:         boolOr(r.SharingEnabled, true),
		ShowAnswers:            boolOr(r.ShowAnswers, true),
		PreventTabSwitch:       boolOr(r.PreventTabSwitch, false),
		TabSwitchWarnings:      intOr(r.TabSwitchWarnings, 2),
		PreventCopyPaste:       boolOr(r.PreventCopyPaste, false),
		RandomiseQuestions:     boolOr(r.RandomiseQuestions, false),
		LeaderboardEnabled:     boolOr(r.LeaderboardEnabled, true),
		NegativeMarkingEnabled: boolOr(r.NegativeMarkingEnabled, false),
		NegativeMarkValue:      floatOr(r.NegativeMarkValue, 0),
	}
	retries := intOr(r.MaxRetries, 0)
	s.RetriesEnabled = retries > 0
	s.MaxRetries = retries
	if !s.NegativeMarkingEnabled {
		s.NegativeMarkValue = 0
	}
	return s
}

// Normalize forces dependent fields into a consistent state: the retry
// ceiling is 0 while retries are disabled, the penalty is 0 while negative
// marking is disabled, and the warning threshold never drops below 1.
func (s QuizSettings) Normalize() QuizSettings {
	if !s.RetriesEnabled {
		s.MaxRetries = 0
	}
	if s.MaxRetries < 0 {
		s.MaxRetries = 0
		s.RetriesEnabled = false
	}
	if !s.NegativeMarkingEnabled || s.NegativeMarkValue < 0 {
		s.NegativeMarkValue = 0
	}
	if s.TabSwitchWarnings < 1 {
		s.TabSwitchWarnings = 1
	}
	if s.DurationMinutes != nil && *s.DurationMinutes <= 0 {
		s.DurationMinutes = nil
	}
	return s
}

// Rules converts the settings back to storable form. The result is fully
// populated so a round-trip through SettingsFromRules is the identity.
func (s QuizSettings) Rules() QuizRules {
	s = s.Normalize()
	return QuizRules{
		DurationMinutes:        s.DurationMinutes,
		MaxRetries:             ptr(s.MaxRetries),
		SharingEnabled:         ptr(s.SharingEnabled),
		ShowAnswers:            ptr(s.ShowAnswers),
		PreventTabSwitch:       ptr(s.PreventTabSwitch),
		TabSwitchWarnings:      ptr(s.TabSwitchWarnings),
		PreventCopyPaste:       ptr(s.PreventCopyPaste),
		RandomiseQuestions:     ptr(s.RandomiseQuestions),
		LeaderboardEnabled:     ptr(s.LeaderboardEnabled),
		NegativeMarkingEnabled: ptr(s.NegativeMarkingEnabled),
		NegativeMarkValue:      ptr(s.NegativeMarkValue),
	}
}

// AttemptsAllowed is the total attempt ceiling for one participant:
// a single attempt while retries are disabled, MaxRetries otherwise.
func (s QuizSettings) AttemptsAllowed() int {
	if !s.RetriesEnabled || s.MaxRetries <= 0 {
		return 1
	}
	return s.MaxRetries
}

// TabSwitchLimitExceeded reports whether the recorded focus-loss count passed
// the configured warning threshold. Always false while the guard is off.
func (s QuizSettings) TabSwitchLimitExceeded(count int) bool {
	return s.PreventTabSwitch && count > s.TabSwitchWarnings
}

func ptr[T any](v T) *T { return &v }

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
