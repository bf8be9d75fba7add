package cli

import (
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	loggedIn bool

	calls []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error {
	f.calls = append(f.calls, "register")
	return nil
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) WhoAmI(ctx context.Context) error {
	f.calls = append(f.calls, "whoami")
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}

func capturePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, 0, len(a))
		for _, v := range a {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &lines
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	lines := capturePrintln(t)

	input := strings.Join([]string{
		"help",
		"register",
		"login",
		"help",
		"",
		"whoami",
		"logout",
		"foobar",
		"exit",
		"whoami",
	}, "\n")

	exec := &fakeExec{loggedIn: false}

	runREPL(context.Background(), exec, func() string { return "status" }, rdr(input))

	want := []string{"register", "login", "whoami", "logout"}
	if strings.Join(exec.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", exec.calls, want)
	}

	out := strings.Join(*lines, "\n")
	for _, s := range []string{
		"Available commands: register, login, exit",
		"Available commands: whoami, login, logout, exit",
		"Unknown command: foobar",
		"Bye!",
	} {
		if !strings.Contains(out, s) {
			t.Fatalf("output misses %q:\n%s", s, out)
		}
	}
}

func TestRunREPL_LastLineWithoutNewline(t *testing.T) {
	capturePrintln(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" }, rdr("whoami"))

	if len(exec.calls) != 1 || exec.calls[0] != "whoami" {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}

func TestRunREPL_StopsOnCancelledContext(t *testing.T) {
	capturePrintln(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	runREPL(ctx, exec, func() string { return "s" }, rdr("login\n"))

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
