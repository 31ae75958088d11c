package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// mergeEnv layers overlay on top of base without mutating either.
func mergeEnv(base, overlay map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// flattenEnv renders an environment map as the KEY=value slice os/exec wants.
// Sorted for reproducible process environments.
func flattenEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(env))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return out
}

// toCtyValue converts a native Go value from an action handler into a
// cty.Value for step output references. It round-trips through JSON, which
// covers every plain-data shape handlers return.
func toCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	if val, ok := v.(cty.Value); ok {
		return val, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("output is not JSON-representable: %w", err)
	}
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(raw, ty)
}

// prefixWriter prefixes every line with the owning instance ID so that the
// interleaved output of parallel instances stays attributable.
type prefixWriter struct {
	mu     sync.Mutex
	dst    io.Writer
	prefix []byte
	buf    bytes.Buffer
}

func newPrefixWriter(dst io.Writer, instanceID string) *prefixWriter {
	return &prefixWriter{dst: dst, prefix: []byte(instanceID + " | ")}
}

// Write implements io.Writer. Partial lines are buffered until a newline
// arrives.
func (w *prefixWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// No complete line yet; keep the remainder buffered.
			w.buf.Write(line)
			break
		}
		if _, err := w.dst.Write(append(append([]byte{}, w.prefix...), line...)); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush writes out any buffered partial line.
func (w *prefixWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() == 0 {
		return nil
	}
	line := append(append([]byte{}, w.prefix...), w.buf.Bytes()...)
	line = append(line, '\n')
	w.buf.Reset()
	_, err := w.dst.Write(line)
	return err
}
