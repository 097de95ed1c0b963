package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// RootPath is the default JSON path argument: the document root. The bot's
// existing keys were written with legacy-style paths, so the dot form is
// kept rather than the newer "$" syntax.
const RootPath = "."

var (
	// ErrNXAndXX is returned when a JSON.SET is requested with both NX and XX.
	ErrNXAndXX = errors.New("redisx: NX and XX are mutually exclusive, use one, the other or neither")

	// ErrInvalidDebugSubcommand is returned for JSON.DEBUG subcommands other
	// than MEMORY and HELP.
	ErrInvalidDebugSubcommand = errors.New("redisx: the only valid JSON.DEBUG subcommands are MEMORY and HELP")

	// ErrDebugMemoryNoKey is returned when JSON.DEBUG MEMORY is requested
	// without a key.
	ErrDebugMemoryNoKey = errors.New("redisx: JSON.DEBUG MEMORY requires a key")

	// ErrInvalidJSONFile is returned by SetFile when the file does not hold
	// valid JSON.
	ErrInvalidJSONFile = errors.New("redisx: file does not contain valid JSON")
)

// Doer executes or queues a raw command. Both *Client and redis.Pipeliner
// satisfy it, so one JSON implementation serves single commands and
// pipelines, and the hooks observe the literal JSON.* commands either way.
type Doer interface {
	Do(ctx context.Context, args ...interface{}) *redis.Cmd
}

// txPipeliner is the optional upgrade used by Set with a TTL: when the Doer
// can open a transactional pipeline, SET and EXPIRE are applied atomically.
type txPipeliner interface {
	TxPipeline() redis.Pipeliner
}

// JSONClient provides the RedisJSON command surface. Results come back as
// *redis.Cmd so that queued pipeline commands can be inspected after Exec
// the same way immediate ones are.
type JSONClient struct {
	d Doer

	// pipelined marks a namespace bound to a pipeline. Pipeliners also
	// expose TxPipeline, so the flag keeps SetWithOptions from flushing the
	// caller's queue through the atomic TTL path.
	pipelined bool
}

// NewJSON binds the JSON namespace to the given command executor.
func NewJSON(d Doer) *JSONClient {
	return &JSONClient{d: d}
}

// JSONPipeline binds the JSON namespace to a pipeline, so JSON commands can
// be queued alongside core commands and flushed in one round trip.
func JSONPipeline(p redis.Pipeliner) *JSONClient {
	return &JSONClient{d: p, pipelined: true}
}

// encode serialises a value the way RedisJSON expects it on the wire.
func (j *JSONClient) encode(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("redisx: encode json value: %w", err)
	}
	return string(b), nil
}

func failedCmd(ctx context.Context, err error) *redis.Cmd {
	cmd := redis.NewCmd(ctx)
	cmd.SetErr(err)
	return cmd
}

// ArrAppend appends the given values to the array under path at key.
// See JSON.ARRAPPEND.
func (j *JSONClient) ArrAppend(ctx context.Context, key, path string, values ...interface{}) *redis.Cmd {
	args := []interface{}{"JSON.ARRAPPEND", key, path}
	for _, v := range values {
		enc, err := j.encode(v)
		if err != nil {
			return failedCmd(ctx, err)
		}
		args = append(args, enc)
	}
	return j.d.Do(ctx, args...)
}

// ArrIndex returns the index of value in the array under path at key, or -1
// when absent. See JSON.ARRINDEX.
func (j *JSONClient) ArrIndex(ctx context.Context, key, path string, value interface{}) *redis.Cmd {
	enc, err := j.encode(value)
	if err != nil {
		return failedCmd(ctx, err)
	}
	return j.d.Do(ctx, "JSON.ARRINDEX", key, path, enc)
}

// ArrIndexRange is ArrIndex limited to the inclusive start and exclusive
// stop indices.
func (j *JSONClient) ArrIndexRange(ctx context.Context, key, path string, value interface{}, start, stop int) *redis.Cmd {
	enc, err := j.encode(value)
	if err != nil {
		return failedCmd(ctx, err)
	}
	return j.d.Do(ctx, "JSON.ARRINDEX", key, path, enc, start, stop)
}

// ArrInsert inserts the given values into the array under path at key,
// before index. See JSON.ARRINSERT.
func (j *JSONClient) ArrInsert(ctx context.Context, key, path string, index int, values ...interface{}) *redis.Cmd {
	args := []interface{}{"JSON.ARRINSERT", key, path, index}
	for _, v := range values {
		enc, err := j.encode(v)
		if err != nil {
			return failedCmd(ctx, err)
		}
		args = append(args, enc)
	}
	return j.d.Do(ctx, args...)
}

// ArrLen returns the length of the array under path at key. See JSON.ARRLEN.
func (j *JSONClient) ArrLen(ctx context.Context, key, path string) *redis.Cmd {
	return j.d.Do(ctx, "JSON.ARRLEN", key, path)
}

// ArrPop removes and returns the element at index from the array under path
// at key. Index -1 pops the last element. See JSON.ARRPOP.
func (j *JSONClient) ArrPop(ctx context.Context, key, path string, index int) *redis.Cmd {
	return j.d.Do(ctx, "JSON.ARRPOP", key, path, index)
}

// ArrTrim trims the array under path at key to the inclusive range
// [start, stop]. See JSON.ARRTRIM.
func (j *JSONClient) ArrTrim(ctx context.Context, key, path string, start, stop int) *redis.Cmd {
	return j.d.Do(ctx, "JSON.ARRTRIM", key, path, start, stop)
}

// Type returns the type of the JSON value under path at key. See JSON.TYPE.
func (j *JSONClient) Type(ctx context.Context, key, path string) *redis.Cmd {
	return j.d.Do(ctx, "JSON.TYPE", key, path)
}

// Resp returns the JSON value under path at key in RESP form. See JSON.RESP.
func (j *JSONClient) Resp(ctx context.Context, key, path string) *redis.Cmd {
	return j.d.Do(ctx, "JSON.RESP", key, path)
}

// ObjKeys returns the key names of the object under path at key.
// See JSON.OBJKEYS.
func (j *JSONClient) ObjKeys(ctx context.Context, key, path string) *redis.Cmd {
	return j.d.Do(ctx, "JSON.OBJKEYS", key, path)
}

// ObjLen returns the number of keys of the object under path at key.
// See JSON.OBJLEN.
func (j *JSONClient) ObjLen(ctx context.Context, key, path string) *redis.Cmd {
	return j.d.Do(ctx, "JSON.OBJLEN", key, path)
}

// NumIncrBy increments the number under path at key by the given amount.
// See JSON.NUMINCRBY.
func (j *JSONClient) NumIncrBy(ctx context.Context, key, path string, number float64) *redis.Cmd {
	enc, err := j.encode(number)
	if err != nil {
		return failedCmd(ctx, err)
	}
	return j.d.Do(ctx, "JSON.NUMINCRBY", key, path, enc)
}

// Clear empties the arrays and objects under path at key without deleting
// them, returning the count of cleared paths. See JSON.CLEAR.
func (j *JSONClient) Clear(ctx context.Context, key, path string) *redis.Cmd {
	return j.d.Do(ctx, "JSON.CLEAR", key, path)
}

// Del deletes the JSON value under path at key. See JSON.DEL.
func (j *JSONClient) Del(ctx context.Context, key, path string) *redis.Cmd {
	return j.d.Do(ctx, "JSON.DEL", key, path)
}

// Forget is an alias for Del. See JSON.FORGET.
func (j *JSONClient) Forget(ctx context.Context, key, path string) *redis.Cmd {
	return j.Del(ctx, key, path)
}

// GetOptions alter how Get renders the document.
type GetOptions struct {
	// NoEscape requests unescaped non-ASCII output.
	NoEscape bool
}

// Get returns the JSON value at key. With no paths the document root is
// returned; multiple paths come back as one object keyed by path.
// See JSON.GET.
func (j *JSONClient) Get(ctx context.Context, key string, paths ...string) *redis.Cmd {
	return j.GetWithOptions(ctx, key, GetOptions{}, paths...)
}

// GetWithOptions is Get with explicit options.
func (j *JSONClient) GetWithOptions(ctx context.Context, key string, opts GetOptions, paths ...string) *redis.Cmd {
	args := []interface{}{"JSON.GET", key}
	if opts.NoEscape {
		args = append(args, "noescape")
	}
	if len(paths) == 0 {
		args = append(args, RootPath)
	} else {
		for _, p := range paths {
			args = append(args, p)
		}
	}
	return j.d.Do(ctx, args...)
}

// GetInto fetches the JSON value at key and unmarshals it into out. A
// missing key is reported as redis.Nil.
func (j *JSONClient) GetInto(ctx context.Context, key string, out interface{}, paths ...string) error {
	raw, err := j.Get(ctx, key, paths...).Text()
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("redisx: decode json value at %s: %w", key, err)
	}
	return nil
}

// MGet returns the JSON values under path for each of the given keys.
// See JSON.MGET.
func (j *JSONClient) MGet(ctx context.Context, path string, keys ...string) *redis.Cmd {
	args := make([]interface{}, 0, len(keys)+2)
	args = append(args, "JSON.MGET")
	for _, k := range keys {
		args = append(args, k)
	}
	args = append(args, path)
	return j.d.Do(ctx, args...)
}

// SetOptions alter JSON.SET behaviour.
type SetOptions struct {
	// NX only sets the value if it does not already exist.
	NX bool
	// XX only sets the value if it already exists.
	XX bool
	// TTL, when positive, expires the key after the given duration. On a
	// client the SET and EXPIRE run in one transactional pipeline; on a
	// pipeline both commands are queued.
	TTL time.Duration
}

// Set stores value as JSON under path at key. See JSON.SET.
func (j *JSONClient) Set(ctx context.Context, key, path string, value interface{}) *redis.Cmd {
	return j.SetWithOptions(ctx, key, path, value, SetOptions{})
}

// SetWithOptions is Set with NX/XX/TTL semantics.
func (j *JSONClient) SetWithOptions(ctx context.Context, key, path string, value interface{}, opts SetOptions) *redis.Cmd {
	if opts.NX && opts.XX {
		return failedCmd(ctx, ErrNXAndXX)
	}

	enc, err := j.encode(value)
	if err != nil {
		return failedCmd(ctx, err)
	}

	args := []interface{}{"JSON.SET", key, path, enc}
	if opts.NX {
		args = append(args, "NX")
	} else if opts.XX {
		args = append(args, "XX")
	}

	if opts.TTL <= 0 {
		return j.d.Do(ctx, args...)
	}

	if tp, ok := j.d.(txPipeliner); ok && !j.pipelined {
		pipe := tp.TxPipeline()
		setCmd := pipe.Do(ctx, args...)
		pipe.Expire(ctx, key, opts.TTL)
		if _, execErr := pipe.Exec(ctx); execErr != nil && setCmd.Err() == nil {
			setCmd.SetErr(execErr)
		}
		return setCmd
	}

	// Bound to a pipeline (or a bare Doer): queue both commands. PEXPIRE
	// keeps sub-second TTLs intact, where EXPIRE would truncate them to 0
	// and delete the key.
	setCmd := j.d.Do(ctx, args...)
	j.d.Do(ctx, "PEXPIRE", key, opts.TTL.Milliseconds())
	return setCmd
}

// Triplet is one key/path/value entry for MSet.
type Triplet struct {
	Key   string
	Path  string
	Value interface{}
}

// MSet sets the JSON value under path at key for every triplet, atomically.
// See JSON.MSET.
func (j *JSONClient) MSet(ctx context.Context, triplets ...Triplet) *redis.Cmd {
	args := make([]interface{}, 0, len(triplets)*3+1)
	args = append(args, "JSON.MSET")
	for _, t := range triplets {
		enc, err := j.encode(t.Value)
		if err != nil {
			return failedCmd(ctx, err)
		}
		args = append(args, t.Key, t.Path, enc)
	}
	return j.d.Do(ctx, args...)
}

// Merge merges value into the matching paths at key. See JSON.MERGE.
func (j *JSONClient) Merge(ctx context.Context, key, path string, value interface{}) *redis.Cmd {
	enc, err := j.encode(value)
	if err != nil {
		return failedCmd(ctx, err)
	}
	return j.d.Do(ctx, "JSON.MERGE", key, path, enc)
}

// SetFile reads the JSON file at filename and stores its content under path
// at key. The file must hold valid JSON.
func (j *JSONClient) SetFile(ctx context.Context, key, path, filename string, opts SetOptions) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("redisx: read json file: %w", err)
	}

	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidJSONFile, filename, err)
	}

	return j.SetWithOptions(ctx, key, path, value, opts).Err()
}

// setPathConcurrency bounds the parallel file loads of SetPath.
const setPathConcurrency = 8

// SetPath walks rootFolder and stores every JSON file it finds under path,
// keyed by the file path without its extension. The returned map records
// per-file success; files that are not valid JSON are reported as false
// rather than aborting the walk. Redis errors abort and are returned.
func (j *JSONClient) SetPath(ctx context.Context, path, rootFolder string, opts SetOptions) (map[string]bool, error) {
	var files []string
	err := filepath.WalkDir(rootFolder, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redisx: walk %s: %w", rootFolder, err)
	}

	var mu sync.Mutex
	results := make(map[string]bool, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(setPathConcurrency)

	for _, file := range files {
		g.Go(func() error {
			key := strings.TrimSuffix(file, filepath.Ext(file))
			err := j.SetFile(ctx, key, path, file, opts)

			ok := err == nil
			if err != nil && !errors.Is(err, ErrInvalidJSONFile) {
				return err
			}

			mu.Lock()
			results[file] = ok
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// StrLen returns the length of the string under path at key. See JSON.STRLEN.
func (j *JSONClient) StrLen(ctx context.Context, key string, paths ...string) *redis.Cmd {
	args := []interface{}{"JSON.STRLEN", key}
	for _, p := range paths {
		args = append(args, p)
	}
	return j.d.Do(ctx, args...)
}

// Toggle flips the boolean under path at key and returns the new value.
// See JSON.TOGGLE.
func (j *JSONClient) Toggle(ctx context.Context, key, path string) *redis.Cmd {
	return j.d.Do(ctx, "JSON.TOGGLE", key, path)
}

// StrAppend appends value to the string under path at key.
// See JSON.STRAPPEND.
func (j *JSONClient) StrAppend(ctx context.Context, key, path, value string) *redis.Cmd {
	enc, err := j.encode(value)
	if err != nil {
		return failedCmd(ctx, err)
	}
	return j.d.Do(ctx, "JSON.STRAPPEND", key, path, enc)
}

// Debug runs a JSON.DEBUG subcommand. MEMORY requires a key; HELP ignores
// key and path. See JSON.DEBUG.
func (j *JSONClient) Debug(ctx context.Context, subcommand, key, path string) *redis.Cmd {
	switch strings.ToUpper(subcommand) {
	case "HELP":
		return j.d.Do(ctx, "JSON.DEBUG", "HELP")
	case "MEMORY":
		if key == "" {
			return failedCmd(ctx, ErrDebugMemoryNoKey)
		}
		if path == "" {
			path = RootPath
		}
		return j.d.Do(ctx, "JSON.DEBUG", "MEMORY", key, path)
	default:
		return failedCmd(ctx, ErrInvalidDebugSubcommand)
	}
}

// DebugMemory reports the memory usage in bytes of the value under path at
// key.
func (j *JSONClient) DebugMemory(ctx context.Context, key, path string) *redis.Cmd {
	return j.Debug(ctx, "MEMORY", key, path)
}
