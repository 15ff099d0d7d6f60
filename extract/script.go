package extract

import (
	"errors"
	"time"

	"github.com/robertkrimen/otto"
)

var errScriptTimeout = errors.New("script timed out")

// runScript evaluates a @js: post-processing script with the extracted value
// bound to `result` and the page base to `baseUrl`. The script's completion
// value replaces the extracted value.
func runScript(script, result, baseURL string, budget time.Duration) (out string, err error) {
	vm := otto.New()
	if err := vm.Set("result", result); err != nil {
		return "", &ScriptError{Script: script, Err: err}
	}
	if err := vm.Set("baseUrl", baseURL); err != nil {
		return "", &ScriptError{Script: script, Err: err}
	}

	if budget > 0 {
		vm.Interrupt = make(chan func(), 1)
		timer := time.AfterFunc(budget, func() {
			vm.Interrupt <- func() {
				panic(errScriptTimeout)
			}
		})
		defer timer.Stop()
	}

	defer func() {
		if caught := recover(); caught != nil {
			if caught == errScriptTimeout {
				err = &ScriptError{Script: script, Err: errScriptTimeout}
				return
			}
			panic(caught)
		}
	}()

	v, err := vm.Run(script)
	if err != nil {
		return "", &ScriptError{Script: script, Err: err}
	}
	if v.IsUndefined() || v.IsNull() {
		return "", nil
	}

	s, err := v.ToString()
	if err != nil {
		return "", &ScriptError{Script: script, Err: err}
	}

	return s, nil
}
