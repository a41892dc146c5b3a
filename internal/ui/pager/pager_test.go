package pager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
)

type fakeSource struct {
	batches  [][]string
	finished bool
	failures []error
	panics   bool
}

func (s *fakeSource) Poll() []string {
	if s.panics {
		panic("source exploded")
	}
	if len(s.batches) == 0 {
		return nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch
}

func (s *fakeSource) Finished() bool    { return s.finished && len(s.batches) == 0 }
func (s *fakeSource) Failures() []error { return s.failures }

func numberedLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	return lines
}

type finiRecorder struct {
	tcell.Screen
	finis int
}

func (f *finiRecorder) Fini() {
	f.finis++
	f.Screen.Fini()
}

func newTestPager(t *testing.T, width, height int, src Source) (*Pager, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("")
	p, err := New(screen, src, Options{Name: "main.go"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	screen.SetSize(width, height)
	p.view.Resize(width, height)
	return p, screen
}

func rowText(s tcell.Screen, y int) string {
	w, _ := s.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, comb, _, _ := s.GetContent(x, y)
		if r == 0 {
			r = ' '
		}
		b.WriteRune(r)
		for _, c := range comb {
			b.WriteRune(c)
		}
	}
	return strings.TrimRight(b.String(), " ")
}

func TestPagerBottomThenLineUp(t *testing.T) {
	src := &fakeSource{batches: [][]string{numberedLines(100)}, finished: true}
	p, screen := newTestPager(t, 40, 21, src)
	defer screen.Fini()

	p.drain()
	if p.view.ContentHeight != 20 {
		t.Fatalf("content height = %d, want 20", p.view.ContentHeight)
	}

	p.execute(cmdBottom)
	if p.view.Offset != 80 {
		t.Fatalf("offset after bottom = %d, want 80", p.view.Offset)
	}
	p.draw()
	if got := strings.TrimSpace(rowText(screen, 0)); got != "81  line 80" {
		t.Fatalf("top row = %q", got)
	}
	if got := strings.TrimSpace(rowText(screen, 19)); got != "100 line 99" {
		t.Fatalf("bottom row = %q", got)
	}

	p.execute(cmdLineUp)
	if p.view.Offset != 79 {
		t.Fatalf("offset after line up = %d, want 79", p.view.Offset)
	}
	p.draw()
	if got := strings.TrimSpace(rowText(screen, 0)); got != "80  line 79" {
		t.Fatalf("top row = %q", got)
	}
	if got := strings.TrimSpace(rowText(screen, 19)); got != "99  line 98" {
		t.Fatalf("bottom row = %q", got)
	}
	if status := rowText(screen, 20); !strings.Contains(status, "main.go  80-99/100  99%  (END)") {
		t.Fatalf("status = %q", status)
	}
}

func TestPagerGutterIsLeftAligned(t *testing.T) {
	src := &fakeSource{batches: [][]string{numberedLines(12)}, finished: true}
	p, screen := newTestPager(t, 20, 13, src)
	defer screen.Fini()
	p.drain()
	p.draw()

	if p.view.GutterWidth != 3 {
		t.Fatalf("gutter width = %d, want 3", p.view.GutterWidth)
	}
	if got := rowText(screen, 0); got != "1  line 0" {
		t.Fatalf("row 0 = %q", got)
	}
	if got := rowText(screen, 9); got != "10 line 9" {
		t.Fatalf("row 9 = %q", got)
	}
}

func TestPagerNavigationClamps(t *testing.T) {
	src := &fakeSource{batches: [][]string{numberedLines(30)}}
	p, screen := newTestPager(t, 40, 11, src)
	defer screen.Fini()
	p.drain()

	steps := []struct {
		cmd  command
		want int
	}{
		{cmdLineUp, 0},
		{cmdPageDown, 10},
		{cmdHalfDown, 15},
		{cmdPageDown, 20},
		{cmdLineDown, 20},
		{cmdHalfUp, 15},
		{cmdWheelUp, 12},
		{cmdWheelDown, 15},
		{cmdPageUp, 5},
		{cmdTop, 0},
		{cmdBottom, 20},
	}
	for i, step := range steps {
		p.execute(step.cmd)
		if p.view.Offset != step.want {
			t.Fatalf("step %d: offset = %d, want %d", i, p.view.Offset, step.want)
		}
	}

	src.batches = [][]string{numberedLines(5)}
	p.drain()
	p.execute(cmdBottom)
	if p.view.Offset != 25 {
		t.Fatalf("offset after more lines = %d, want 25", p.view.Offset)
	}
}

func TestPagerShortBufferNeverScrolls(t *testing.T) {
	src := &fakeSource{batches: [][]string{numberedLines(3)}}
	p, screen := newTestPager(t, 40, 11, src)
	defer screen.Fini()
	p.drain()

	for _, cmd := range []command{cmdBottom, cmdPageDown, cmdLineDown} {
		if p.execute(cmd) {
			t.Fatalf("command %d should not move a short buffer", cmd)
		}
	}
	if p.view.Offset != 0 {
		t.Fatalf("offset = %d", p.view.Offset)
	}
}

func TestPagerResizeKeepsOffsetInRange(t *testing.T) {
	src := &fakeSource{batches: [][]string{numberedLines(50)}}
	p, screen := newTestPager(t, 40, 11, src)
	defer screen.Fini()
	p.drain()
	p.execute(cmdBottom)

	p.handleEvent(tcell.NewEventResize(40, 31))
	if p.view.ContentHeight != 30 || p.view.Offset != 20 {
		t.Fatalf("after resize: height %d offset %d", p.view.ContentHeight, p.view.Offset)
	}
}

func TestPagerDrawExpandsTabsAndClips(t *testing.T) {
	src := &fakeSource{batches: [][]string{{"\tx", "abcdefghijklmnop"}}}
	p, screen := newTestPager(t, 10, 5, src)
	defer screen.Fini()
	p.drain()
	p.draw()

	if got := rowText(screen, 0); got != "1     x" {
		t.Fatalf("tab row = %q", got)
	}
	if got := rowText(screen, 1); got != "2 abcdefgh" {
		t.Fatalf("clipped row = %q", got)
	}
}

func TestPagerDrawAppliesEscapes(t *testing.T) {
	src := &fakeSource{batches: [][]string{{"\x1b[0;1;38;2;255;0;0mred\x1b[0m ok"}}}
	p, screen := newTestPager(t, 20, 3, src)
	defer screen.Fini()
	p.drain()
	p.draw()

	if got := rowText(screen, 0); got != "1 red ok" {
		t.Fatalf("row = %q", got)
	}
	_, _, style, _ := screen.GetContent(2, 0)
	fg, _, attrs := style.Decompose()
	if fg != tcell.NewRGBColor(255, 0, 0) || attrs&tcell.AttrBold == 0 {
		t.Fatalf("styled cell fg=%v attrs=%v", fg, attrs)
	}
	_, _, style, _ = screen.GetContent(6, 0)
	if fg, _, attrs := style.Decompose(); fg != tcell.ColorDefault || attrs&tcell.AttrBold != 0 {
		t.Fatalf("reset cell fg=%v attrs=%v", fg, attrs)
	}
}

func TestPagerStatusShowsFailures(t *testing.T) {
	src := &fakeSource{batches: [][]string{{"a"}}, failures: []error{errors.New("nvim: exit status 1")}}
	p, screen := newTestPager(t, 100, 5, src)
	defer screen.Fini()
	p.drain()
	p.draw()

	status := rowText(screen, 4)
	if !strings.Contains(status, "loading") || !strings.Contains(status, "error: nvim: exit status 1") {
		t.Fatalf("status = %q", status)
	}
}

func TestPagerSpinnerAdvancesWhileLoading(t *testing.T) {
	src := &fakeSource{}
	p, screen := newTestPager(t, 40, 5, src)
	defer screen.Fini()

	now := time.Now()
	if !p.tick(now) {
		t.Fatalf("first tick should advance")
	}
	if p.tick(now.Add(10 * time.Millisecond)) {
		t.Fatalf("spinner advanced too early")
	}
	if !p.tick(now.Add(spinnerInterval)) {
		t.Fatalf("spinner should advance after the interval")
	}

	src.finished = true
	p.drain()
	if p.tick(now.Add(time.Second)) {
		t.Fatalf("spinner should stop once loading is done")
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		name    string
		view    Viewport
		loading bool
		want    string
	}{
		{"loading", Viewport{ContentHeight: 20, Total: 100}, true, "a.go  1-20/100  20%  ⠋ loading"},
		{"end", Viewport{Offset: 80, ContentHeight: 20, Total: 100}, false, "a.go  81-100/100  100%  (END)"},
		{"empty", Viewport{ContentHeight: 20}, false, "a.go  0-0/0  100%  (END)"},
	}
	for _, tt := range tests {
		if got := statusText("a.go", tt.view, tt.loading, 0); got != tt.want {
			t.Fatalf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDisplayNameNormalizesAndSanitizes(t *testing.T) {
	if got := displayName("cafe\u0301.go"); got != "caf\u00e9.go" {
		t.Fatalf("expected NFC name, got %q", got)
	}
	if got := displayName("a\x1b[2Jb"); strings.ContainsRune(got, 0x1b) {
		t.Fatalf("escape survived: %q", got)
	}
	if got := displayName(""); got != "-" {
		t.Fatalf("empty name = %q", got)
	}
}

func TestRunQuitsOnKeyAndRestoresTerminal(t *testing.T) {
	src := &fakeSource{batches: [][]string{numberedLines(50)}, finished: true}
	screen := &finiRecorder{Screen: tcell.NewSimulationScreen("")}
	p, err := New(screen, src, Options{Name: "main.go"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.view.Resize(30, 11)

	sim := screen.Screen.(tcell.SimulationScreen)
	sim.SetSize(30, 11)
	if err := sim.PostEvent(tcell.NewEventResize(30, 11)); err != nil {
		t.Fatalf("post resize: %v", err)
	}
	sim.InjectKey(tcell.KeyRune, 'G', tcell.ModNone)
	sim.InjectKey(tcell.KeyRune, 'k', tcell.ModNone)
	sim.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := p.Viewport().Offset; got != 39 {
		t.Fatalf("offset = %d, want 39", got)
	}
	if len(p.Lines()) != 50 {
		t.Fatalf("lines = %d", len(p.Lines()))
	}
	if screen.finis != 1 {
		t.Fatalf("terminal restored %d times", screen.finis)
	}
}

func TestRunRestoresTerminalOnPanic(t *testing.T) {
	src := &fakeSource{panics: true}
	screen := &finiRecorder{Screen: tcell.NewSimulationScreen("")}
	p, err := New(screen, src, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		if screen.finis != 1 {
			t.Fatalf("terminal restored %d times", screen.finis)
		}
	}()
	_ = p.Run(t.Context())
}

func TestRunStopsWhenContextDone(t *testing.T) {
	src := &fakeSource{}
	p, _ := newTestPager(t, 20, 5, src)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
