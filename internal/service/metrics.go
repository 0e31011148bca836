package service

// AuthMetricsRecorder records auth metrics / Enregistre les métriques d'authentification
type AuthMetricsRecorder interface {
	RecordAccountLockout()
	RecordLoginAttempt(status string)
	RecordTokenRefresh(status string)
}

// ProfileMetricsRecorder records profile metrics / Enregistre les métriques des profils
type ProfileMetricsRecorder interface {
	RecordRegistration()
	RecordEmailVerification(status string)
}

// LedgerMetricsRecorder records postings and payments / Enregistre écritures et paiements
type LedgerMetricsRecorder interface {
	RecordPosting(kind string)
	RecordPayment(method, status string, grossCents int64)
}

// RosterMetricsRecorder records imports and syncs / Enregistre imports et synchros
type RosterMetricsRecorder interface {
	RecordRosterImport(source, outcome string)
}

// MailMetricsRecorder records outbound email / Enregistre les emails sortants
type MailMetricsRecorder interface {
	RecordEmail(template, status string)
}

// CacheMetricsRecorder records cache lookups / Enregistre les consultations du cache
type CacheMetricsRecorder interface {
	RecordCache(result string)
}

// nopMetrics stands in when no recorder is wired
type nopMetrics struct{}

func (nopMetrics) RecordAccountLockout()               {}
func (nopMetrics) RecordLoginAttempt(string)           {}
func (nopMetrics) RecordTokenRefresh(string)           {}
func (nopMetrics) RecordRegistration()                 {}
func (nopMetrics) RecordEmailVerification(string)      {}
func (nopMetrics) RecordPosting(string)                {}
func (nopMetrics) RecordPayment(string, string, int64) {}
func (nopMetrics) RecordRosterImport(string, string)   {}
func (nopMetrics) RecordEmail(string, string)          {}
func (nopMetrics) RecordCache(string)                  {}
