package highlight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kk-code-lab/rcat/internal/debuglog"
	"github.com/kk-code-lab/rcat/internal/style"
	"github.com/tidwall/gjson"
)

// nvimGenerator runs inside a headless Neovim. It opens RCAT_FILE, walks the
// syntax IDs of every column, and prints one JSON array of segments per line.
// Lines longer than 1000 bytes are emitted without highlighting. Errors are
// written to stderr and exit with status 1.
const nvimGenerator = `local fn = vim.fn
local api = vim.api
local file = vim.env.RCAT_FILE

local attr_cache = {}
local trans_cache = {}

local function attrs(hl_id)
  if not hl_id or hl_id <= 0 then return nil end
  local cached = attr_cache[hl_id]
  if cached ~= nil then return cached or nil end
  local ok, hl = pcall(api.nvim_get_hl, 0, { id = hl_id, link = false })
  if not ok or not hl or (hl.fg == nil and hl.bg == nil and not hl.bold and not hl.italic and not hl.underline) then
    attr_cache[hl_id] = false
    return nil
  end
  local a = { fg = hl.fg, bg = hl.bg, b = hl.bold or nil, i = hl.italic or nil, u = hl.underline or nil }
  attr_cache[hl_id] = a
  return a
end

local function segment(text, hl_id)
  local seg = { t = text }
  local a = attrs(hl_id)
  if a then
    seg.fg = a.fg
    seg.bg = a.bg
    seg.b = a.b
    seg.i = a.i
    seg.u = a.u
  end
  return seg
end

local function generate()
  if not file or file == '' then
    error('RCAT_FILE is not set')
  end
  vim.cmd('silent! edit ' .. fn.fnameescape(file))

  local out = io.stdout
  local lines = api.nvim_buf_get_lines(0, 0, -1, false)
  for i, line in ipairs(lines) do
    local segs = {}
    if #line > 1000 then
      table.insert(segs, { t = line })
    elseif #line > 0 then
      local last_id = -1
      local start = 1
      for col = 1, #line do
        local raw = fn.synID(i, col, 1)
        local id = trans_cache[raw]
        if not id then
          id = fn.synIDtrans(raw)
          trans_cache[raw] = id
        end
        if id ~= last_id then
          if col > start then
            table.insert(segs, segment(string.sub(line, start, col - 1), last_id))
          end
          start = col
          last_id = id
        end
      end
      table.insert(segs, segment(string.sub(line, start), last_id))
    end
    out:write(vim.json.encode(segs), "\n")
  end
  out:flush()
end

local ok, err = pcall(generate)
if not ok then
  io.stderr:write('rcat generator: ', tostring(err), "\n")
  io.stderr:flush()
  vim.cmd('cq 1')
end
vim.cmd('qa!')
`

// NvimOptions configures the Neovim engine.
type NvimOptions struct {
	// Binary overrides the executable name looked up on PATH.
	Binary string
	// Init is passed as -u when set.
	Init string
	// AppName selects the Neovim config directory (NVIM_APPNAME).
	AppName string
	// ConfigHome overrides XDG_CONFIG_HOME for the child process.
	ConfigHome string
	// ScriptDir is where the generator script is written.
	ScriptDir string
}

// Nvim highlights artifacts with a headless Neovim process per chunk.
type Nvim struct {
	locator *Locator
	opts    NvimOptions
	logger  *slog.Logger

	scriptOnce sync.Once
	scriptPath string
	scriptErr  error
}

// commandRunner executes a child process and returns its stdout and stderr.
type commandRunner func(ctx context.Context, name string, args, env []string) ([]byte, []byte, error)

var runCommand commandRunner = func(ctx context.Context, name string, args, env []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// NewNvim builds the Neovim engine.
func NewNvim(locator *Locator, opts NvimOptions, logger *slog.Logger) *Nvim {
	if opts.Binary == "" {
		opts.Binary = "nvim"
	}
	if opts.AppName == "" {
		opts.AppName = "rcat"
	}
	if opts.ScriptDir == "" {
		opts.ScriptDir = os.TempDir()
	}
	return &Nvim{
		locator: locator,
		opts:    opts,
		logger:  debuglog.OrDiscard(logger),
	}
}

func (n *Nvim) Name() string { return "nvim" }

// Options returns the resolved engine options.
func (n *Nvim) Options() NvimOptions { return n.opts }

func (n *Nvim) Highlight(ctx context.Context, req Request) (Output, error) {
	bin, err := n.locator.Find(n.opts.Binary)
	if err != nil {
		return Output{}, fmt.Errorf("%w: nvim: %v", ErrCollaborator, err)
	}
	script, err := n.script()
	if err != nil {
		return Output{}, fmt.Errorf("nvim: write generator: %w", err)
	}

	args := n.args(script, req)
	env := []string{"RCAT_FILE=" + req.Path, "NVIM_APPNAME=" + n.opts.AppName}
	if n.opts.ConfigHome != "" {
		env = append(env, "XDG_CONFIG_HOME="+n.opts.ConfigHome)
	}

	stdout, stderr, err := runCommand(ctx, bin, args, env)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Output{}, fmt.Errorf("%w: nvim: %v", ErrCollaborator, ctxErr)
		}
		detail := strings.TrimSpace(string(stderr))
		n.logger.Debug("nvim failed", "artifact", req.Path, "err", err, "stderr", detail)
		if detail != "" {
			return Output{}, fmt.Errorf("%w: nvim: %v: %s", ErrCollaborator, err, firstLine(detail))
		}
		return Output{}, fmt.Errorf("%w: nvim: %v", ErrCollaborator, err)
	}

	lines, err := parseSegmentLines(stdout)
	if err != nil {
		return Output{}, err
	}
	return Output{Lines: lines}, nil
}

func (n *Nvim) args(script string, req Request) []string {
	args := []string{"--headless", "-n", "-i", "NONE"}
	if n.opts.Init != "" {
		args = append(args, "-u", n.opts.Init)
	}
	if req.RuntimePath != "" {
		args = append(args, "--cmd", "set rtp^="+escapeVimOption(req.RuntimePath))
	}
	if req.Theme != "" {
		args = append(args, "-c", "silent! colorscheme "+req.Theme)
	}
	return append(args, "-c", "luafile "+script)
}

// script writes the generator once per process.
func (n *Nvim) script() (string, error) {
	n.scriptOnce.Do(func() {
		path := filepath.Join(n.opts.ScriptDir, fmt.Sprintf("rcat_nvim_%d.lua", os.Getpid()))
		if err := os.WriteFile(path, []byte(nvimGenerator), 0o600); err != nil {
			n.scriptErr = err
			return
		}
		n.scriptPath = path
	})
	return n.scriptPath, n.scriptErr
}

// Close removes the generator script.
func (n *Nvim) Close() error {
	if n.scriptPath == "" {
		return nil
	}
	err := os.Remove(n.scriptPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func parseSegmentLines(out []byte) ([][]Segment, error) {
	raw := SplitLines(out)
	lines := make([][]Segment, 0, len(raw))
	for i, line := range raw {
		if !gjson.Valid(line) {
			return nil, fmt.Errorf("%w: nvim: line %d: malformed output", ErrCollaborator, i+1)
		}
		doc := gjson.Parse(line)
		if !doc.IsArray() && !doc.IsObject() {
			return nil, fmt.Errorf("%w: nvim: line %d: expected segment list", ErrCollaborator, i+1)
		}
		// vim.json.encode renders an empty table as {}, which means an empty line.
		var segments []Segment
		if doc.IsArray() {
			doc.ForEach(func(_, value gjson.Result) bool {
				segments = append(segments, segmentFromJSON(value))
				return true
			})
		}
		lines = append(lines, segments)
	}
	return lines, nil
}

func segmentFromJSON(value gjson.Result) Segment {
	desc := style.Descriptor{
		Bold:      value.Get("b").Bool(),
		Italic:    value.Get("i").Bool(),
		Underline: value.Get("u").Bool(),
	}
	if fg := value.Get("fg"); fg.Exists() {
		desc = desc.WithFg(style.Hex(uint32(fg.Uint())))
	}
	if bg := value.Get("bg"); bg.Exists() {
		desc = desc.WithBg(style.Hex(uint32(bg.Uint())))
	}
	return Segment{
		Text:   value.Get("t").String(),
		Style:  desc,
		Styled: !desc.IsZero(),
	}
}

func escapeVimOption(value string) string {
	return strings.NewReplacer(`\`, `\\`, ` `, `\ `, `,`, `\,`).Replace(value)
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
