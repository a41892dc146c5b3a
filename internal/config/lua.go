package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// luaTimeout bounds evaluation of the config file.
const luaTimeout = 2 * time.Second

// globals removed after opening the base library; they can read files.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "module"}

// loadLua evaluates the config file in a sandboxed state and copies the
// returned table into cfg.
func loadLua(path string, cfg *Config) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), luaTimeout)
	defer cancel()
	L.SetContext(ctx)

	fn, err := L.LoadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	switch v := ret.(type) {
	case *lua.LTable:
		return applyTable(v, cfg)
	case *lua.LNilType:
		return nil
	default:
		return fmt.Errorf("%w: config must return a table, got %s", ErrInvalid, ret.Type())
	}
}

func applyTable(tbl *lua.LTable, cfg *Config) error {
	var errs []error
	tbl.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: non-string key %s", ErrInvalid, k.String()))
			return
		}
		if err := applyKey(string(key), v, cfg); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

func applyKey(key string, v lua.LValue, cfg *Config) error {
	var err error
	switch key {
	case "theme":
		cfg.Theme, err = luaString(key, v)
	case "engine":
		cfg.Engine, err = luaString(key, v)
	case "pager":
		cfg.Pager, err = luaString(key, v)
	case "color":
		cfg.Color, err = luaString(key, v)
	case "jobs":
		var n int64
		n, err = luaInt(key, v)
		cfg.Jobs = int(n)
	case "max_size":
		cfg.MaxSize, err = luaInt(key, v)
	case "timeout_ms":
		var ms int64
		ms, err = luaInt(key, v)
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	case "style_cache_size":
		var n int64
		n, err = luaInt(key, v)
		cfg.StyleCacheSize = int(n)
	case "best_effort":
		cfg.BestEffort, err = luaBool(key, v)
	case "command":
		cfg.Command, err = luaStringList(key, v)
	case "nvim":
		err = applySection(key, v, map[string]*string{
			"binary":       &cfg.Nvim.Binary,
			"init":         &cfg.Nvim.Init,
			"runtime_path": &cfg.Nvim.RuntimePath,
			"appname":      &cfg.Nvim.AppName,
			"config_home":  &cfg.Nvim.ConfigHome,
		})
	case "colors":
		err = applySection(key, v, map[string]*string{
			"gutter":    &cfg.Colors.Gutter,
			"status_fg": &cfg.Colors.StatusFg,
			"status_bg": &cfg.Colors.StatusBg,
			"error":     &cfg.Colors.Error,
		})
	default:
		err = fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
	}
	return err
}

// applySection copies the string fields of a nested table.
func applySection(section string, v lua.LValue, fields map[string]*string) error {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return fmt.Errorf("%w: %s must be a table, got %s", ErrInvalid, section, v.Type())
	}
	var errs []error
	tbl.ForEach(func(k, val lua.LValue) {
		name := k.String()
		dst, ok := fields[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: unknown key %s.%s", ErrInvalid, section, name))
			return
		}
		s, err := luaString(section+"."+name, val)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = s
	})
	return errors.Join(errs...)
}

func luaString(key string, v lua.LValue) (string, error) {
	s, ok := v.(lua.LString)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %s", ErrInvalid, key, v.Type())
	}
	return string(s), nil
}

func luaInt(key string, v lua.LValue) (int64, error) {
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number, got %s", ErrInvalid, key, v.Type())
	}
	f := float64(n)
	if f != math.Trunc(f) || f < 0 || f > 1<<53 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %v", ErrInvalid, key, f)
	}
	return int64(f), nil
}

func luaBool(key string, v lua.LValue) (bool, error) {
	b, ok := v.(lua.LBool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean, got %s", ErrInvalid, key, v.Type())
	}
	return bool(b), nil
}

func luaStringList(key string, v lua.LValue) ([]string, error) {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list of strings, got %s", ErrInvalid, key, v.Type())
	}
	n := tbl.Len()
	list := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		s, err := luaString(fmt.Sprintf("%s[%d]", key, i), tbl.RawGetInt(i))
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}
