package apihttp

import (
	"fmt"
	"strconv"
	"strings"

	"trackstream/internal/domain"
)

// parseByteRange interprets an HTTP Range header as a track byte range. An
// absent header means the whole track. Only single "bytes=start-" and
// "bytes=start-end" forms are supported; the inclusive HTTP end is converted
// to the exclusive form used internally. Suffix ranges ("bytes=-n") are
// rejected because the track length may not be known yet.
func parseByteRange(header string) (domain.Range, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return domain.Range{}, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return domain.Range{}, fmt.Errorf("unsupported range unit in %q", header)
	}
	if strings.ContainsRune(spec, ',') {
		return domain.Range{}, fmt.Errorf("multipart ranges are not supported")
	}

	startRaw, endRaw, ok := strings.Cut(spec, "-")
	if !ok {
		return domain.Range{}, fmt.Errorf("malformed range %q", header)
	}
	if startRaw == "" {
		return domain.Range{}, fmt.Errorf("suffix ranges are not supported")
	}

	start, err := strconv.ParseInt(startRaw, 10, 64)
	if err != nil || start < 0 {
		return domain.Range{}, fmt.Errorf("malformed range start in %q", header)
	}

	if endRaw == "" {
		return domain.NewRange(start), nil
	}

	end, err := strconv.ParseInt(endRaw, 10, 64)
	if err != nil || end < start {
		return domain.Range{}, fmt.Errorf("malformed range end in %q", header)
	}
	return domain.NewBoundedRange(start, end+1), nil
}
