package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidTags is returned when the tags field is neither a string nor a list of strings.
var ErrInvalidTags = errors.New("models: tags must be a comma-separated string or a list of strings")

// TagInput accepts tags either as a comma-separated string ("denim, blue")
// or as a JSON array (["denim", "blue"]). After decoding it always holds the
// normalized form produced by NormalizeTags.
type TagInput []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TagInput) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = nil
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*t = NormalizeTags(strings.Split(asString, ","))
		return nil
	}

	var asList []string
	if err := json.Unmarshal(data, &asList); err != nil {
		return ErrInvalidTags
	}
	*t = NormalizeTags(asList)
	return nil
}

// NormalizeTags trims every tag, drops empty ones and removes duplicates,
// keeping the first occurrence of each tag in its original position.
// The result is never nil.
func NormalizeTags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
