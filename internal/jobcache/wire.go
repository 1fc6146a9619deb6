// Package jobcache implements the durable, per-job-name memoization store
// (C8, spec §4.8): each key stores a serialized result alongside the
// config snapshot it was computed under, so a config change invalidates
// stale entries without an explicit cache-clear step. Grounded on
// jota2rz-vdj-video-sync/p0lyn0mial-intelsk's modernc.org/sqlite usage
// (see internal/store) for the embedded storage engine, and on spec
// §6's one-byte type-tag wire format for the value encoding.
package jobcache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sylphlab/sotimediaorganizer/internal/merr"
)

type tag byte

const (
	tagStructuredMap tag = 0
	tagOpaqueBuffer  tag = 1
	tagDateTime      tag = 2
)

// encode serializes v per spec §6: []byte values are tagged as opaque
// buffers, time.Time values as ISO-8601 datetimes, and everything else as
// a JSON-encoded structured map (json.Marshal on a struct or map).
func encode(v any) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		return append([]byte{byte(tagOpaqueBuffer)}, val...), nil
	case time.Time:
		return append([]byte{byte(tagDateTime)}, []byte(val.UTC().Format(time.RFC3339Nano))...), nil
	default:
		body, err := json.Marshal(v)
		if err != nil {
			return nil, merr.Wrap(merr.Hashing, "jobcache.encode", err)
		}
		return append([]byte{byte(tagStructuredMap)}, body...), nil
	}
}

// decode deserializes data into dest, a pointer to the expected shape.
// Legacy untagged values (no recognizable tag byte, written before this
// scheme existed) are decoded as structured maps, matching spec §6's
// forward-compatibility rule.
func decode(data []byte, dest any) (legacy bool, err error) {
	if len(data) == 0 {
		return false, merr.New(merr.Hashing, "jobcache.decode", "empty payload")
	}

	t := tag(data[0])
	body := data[1:]
	switch t {
	case tagOpaqueBuffer:
		bp, ok := dest.(*[]byte)
		if !ok {
			return false, merr.New(merr.Hashing, "jobcache.decode", "opaque buffer payload requires *[]byte destination")
		}
		*bp = append([]byte(nil), body...)
		return false, nil
	case tagDateTime:
		tp, ok := dest.(*time.Time)
		if !ok {
			return false, merr.New(merr.Hashing, "jobcache.decode", "datetime payload requires *time.Time destination")
		}
		parsed, perr := time.Parse(time.RFC3339Nano, string(body))
		if perr != nil {
			return false, merr.Wrap(merr.Hashing, "jobcache.decode", perr)
		}
		*tp = parsed
		return false, nil
	case tagStructuredMap:
		if err := json.Unmarshal(body, dest); err != nil {
			return false, merr.Wrap(merr.Hashing, "jobcache.decode", err)
		}
		return false, nil
	default:
		// No recognizable tag: the whole payload is legacy, untagged JSON.
		if err := json.Unmarshal(data, dest); err != nil {
			return false, merr.Wrap(merr.Hashing, "jobcache.decode", err)
		}
		return true, nil
	}
}

func keyFor(jobName, key string) string {
	return fmt.Sprintf("%s\x00%s", jobName, key)
}
