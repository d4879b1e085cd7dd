package command

import (
	"net/url"
	"strings"
)

// Parse turns a raw command into a Command. It never fails: a path that
// matches no route yields KindUnknown.
func Parse(raw string) Command {
	path, rawQuery, _ := strings.Cut(raw, "?")
	query, _ := url.ParseQuery(rawQuery)

	cmd := Command{
		Kind:  KindUnknown,
		Path:  path,
		Query: query,
	}

	norm, ok := normalise(path)
	if !ok {
		return cmd
	}

	for _, r := range routes {
		if !r.Pattern.MatchString(norm) {
			continue
		}
		seg := strings.Split(norm, "/")
		cmd.Kind = r.Kind
		if len(seg) > 1 && seg[1] != "cfg" {
			cmd.Zone = num(seg, 1)
		}
		if r.fill != nil {
			r.fill(&cmd, seg)
		}
		return cmd
	}
	return cmd
}

// normalise strips everything before the "audio/" segment, so both
// "audio/1/play" and "/audio/1/play" parse the same way.
func normalise(path string) (string, bool) {
	if strings.HasPrefix(path, "audio/") {
		return path, true
	}
	if i := strings.Index(path, "/audio/"); i >= 0 {
		return path[i+1:], true
	}
	return "", false
}
