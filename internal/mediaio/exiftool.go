package mediaio

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"golang.org/x/time/rate"

	"github.com/sylphlab/sotimediaorganizer/internal/merr"
)

// ExiftoolMetadataReader is the default MetadataReader, shelling out to
// exiftool -json and flattening its single-object output into the plain
// string tag map ProjectTags consumes.
type ExiftoolMetadataReader struct {
	ExiftoolPath string
	Limiter      *rate.Limiter
}

// NewExiftoolMetadataReader constructs a reader using exiftool resolved
// from PATH, throttled to defaultToolRate subprocess starts per second.
func NewExiftoolMetadataReader() *ExiftoolMetadataReader {
	return &ExiftoolMetadataReader{
		ExiftoolPath: "exiftool",
		Limiter:      rate.NewLimiter(rate.Limit(defaultToolRate), defaultToolRate),
	}
}

func (r *ExiftoolMetadataReader) ReadTags(ctx context.Context, path string) (map[string]string, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return nil, merr.Wrap(merr.ExternalTool, "mediaio.ReadTags", err).WithPath(path)
		}
	}
	cmd := exec.CommandContext(ctx, r.ExiftoolPath, "-json", "-n", path)
	out, err := cmd.Output()
	if err != nil {
		return nil, merr.Wrap(merr.ExternalTool, "mediaio.ReadTags", err).WithPath(path)
	}

	var records []map[string]any
	if err := json.Unmarshal(out, &records); err != nil {
		return nil, merr.Wrap(merr.ExternalTool, "mediaio.ReadTags", err).WithPath(path)
	}
	if len(records) == 0 {
		return nil, merr.New(merr.ExternalTool, "mediaio.ReadTags", "exiftool returned no records").WithPath(path)
	}

	tags := make(map[string]string, len(records[0]))
	for k, v := range records[0] {
		tags[k] = fmt.Sprintf("%v", v)
	}
	return tags, nil
}
