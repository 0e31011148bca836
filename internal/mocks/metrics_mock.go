package mocks

import "sync"

// MockMetrics is a mock implementation of the service metrics recorders for testing
type MockMetrics struct {
	mu sync.Mutex

	AccountLockoutCalls int
	RegistrationCalls   int
	LoginAttempts       map[string]int
	TokenRefreshes      map[string]int
	Verifications       map[string]int
	Postings            map[string]int
	Payments            map[string]int // "method/status"
	RosterImports       map[string]int // "source/outcome"
	Emails              map[string]int // "template/status"
	Cache               map[string]int
	TaskRuns            map[string]int // "task/outcome"
	TaskStatus          map[string]bool
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		LoginAttempts:  make(map[string]int),
		TokenRefreshes: make(map[string]int),
		Verifications:  make(map[string]int),
		Postings:       make(map[string]int),
		Payments:       make(map[string]int),
		RosterImports:  make(map[string]int),
		Emails:         make(map[string]int),
		Cache:          make(map[string]int),
		TaskRuns:       make(map[string]int),
		TaskStatus:     make(map[string]bool),
	}
}

func (m *MockMetrics) RecordAccountLockout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AccountLockoutCalls++
}

func (m *MockMetrics) RecordRegistration() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RegistrationCalls++
}

func (m *MockMetrics) RecordLoginAttempt(status string) { m.inc(m.LoginAttempts, status) }

func (m *MockMetrics) RecordTokenRefresh(status string) { m.inc(m.TokenRefreshes, status) }

func (m *MockMetrics) RecordEmailVerification(status string) { m.inc(m.Verifications, status) }

func (m *MockMetrics) RecordPosting(kind string) { m.inc(m.Postings, kind) }

func (m *MockMetrics) RecordPayment(method, status string, grossCents int64) {
	m.inc(m.Payments, method+"/"+status)
}

func (m *MockMetrics) RecordRosterImport(source, outcome string) {
	m.inc(m.RosterImports, source+"/"+outcome)
}

func (m *MockMetrics) RecordEmail(template, status string) { m.inc(m.Emails, template+"/"+status) }

func (m *MockMetrics) RecordCache(result string) { m.inc(m.Cache, result) }

func (m *MockMetrics) SetBackgroundTaskStatus(task string, running bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TaskStatus[task] = running
}

func (m *MockMetrics) RecordTaskRun(task string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.inc(m.TaskRuns, task+"/"+outcome)
}

// Running reports the last status set for task
func (m *MockMetrics) Running(task string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TaskStatus[task]
}

// Count reads a counter safely
func (m *MockMetrics) Count(counter map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return counter[key]
}

func (m *MockMetrics) inc(counter map[string]int, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counter[key]++
}
