package log

// TB is the subset of testing.TB the Testing logger needs.
type TB interface {
	Errorf(string, ...any)
	Logf(string, ...any)
	Helper()
}

// Testing routes log lines to a test. Error lines are logged, not failed:
// recovered subscriber panics are expected in some tests.
type Testing struct {
	TB
	Tags []any
}

func (l *Testing) Debug(m string, s ...any) {
	l.Helper()
	l.Logf("%s", tfmt("DEB ", m, s, l.Tags))
}
func (l *Testing) Info(m string, s ...any) {
	l.Helper()
	l.Logf("%s", tfmt("INF ", m, s, l.Tags))
}
func (l *Testing) Error(m string, s ...any) {
	l.Helper()
	l.Logf("%s", tfmt("ERR ", m, s, l.Tags))
}
func (l *Testing) With(tags ...any) Logger {
	return &Testing{TB: l.TB, Tags: join(l.Tags, tags)}
}
