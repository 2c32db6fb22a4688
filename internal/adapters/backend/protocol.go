package backend

import (
	"encoding/base64"
	"encoding/json"
	"path"
	"strings"

	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/zerr"
)

// line is one JSON object printed by the backend. Exactly one shape is valid:
//
//	{"artifact": "pkg/A.class", "sources": ["src/a.kt"], "content": "<base64>"}
//	{"source": "src/b.kt", "error": "unresolved reference"}
type line struct {
	Artifact string   `json:"artifact,omitempty"`
	Sources  []string `json:"sources,omitempty"`
	Content  *string  `json:"content,omitempty"`

	Source string `json:"source,omitempty"`
	Error  string `json:"error,omitempty"`
}

func decodeLine(raw []byte, result *domain.CompileResult) error {
	var l line
	if err := json.Unmarshal(raw, &l); err != nil {
		return zerr.Wrap(domain.ErrBackendProtocol, err.Error())
	}

	switch {
	case l.Artifact != "":
		out := domain.Output{
			Path:         domain.ArtifactPath(cleanSlash(l.Artifact)),
			Contributors: domain.NewSourceSet(),
		}
		for _, s := range l.Sources {
			out.Contributors.Add(domain.NewSourceUnit(cleanSlash(s)))
		}
		if l.Content != nil {
			content, err := base64.StdEncoding.DecodeString(*l.Content)
			if err != nil {
				return zerr.With(zerr.Wrap(domain.ErrBackendProtocol, "content is not base64"), "artifact", l.Artifact)
			}
			out.Content = content
		}
		result.Outputs = append(result.Outputs, out)
	case l.Source != "":
		msg := l.Error
		if msg == "" {
			msg = domain.ErrCompilationUnitFailed.Error()
		}
		result.Failures = append(result.Failures, domain.UnitFailure{
			Unit:    domain.NewSourceUnit(cleanSlash(l.Source)),
			Message: msg,
		})
	default:
		return zerr.Wrap(domain.ErrBackendProtocol, "line is neither an artifact nor a unit error")
	}
	return nil
}

func cleanSlash(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}
