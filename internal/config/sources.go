package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dsfg/calendar/internal/model"
)

// フィードソースの検証エラー
var (
	ErrNoSources           = errors.New("at least one feed source is required")
	ErrSourceMissingURL    = errors.New("feed source url is required")
	ErrSourceInvalidURL    = errors.New("feed source url must be an absolute http(s) URL")
	ErrDuplicateSourceName = errors.New("feed source names must be unique")
)

// sourcesFile はFEED_SOURCES_FILEのYAML構造。
//
//	sources:
//	  - name: jse
//	    url: https://www.jamstockex.com/feed/
//	    use_proxy: false
type sourcesFile struct {
	Sources []model.FeedSource `yaml:"sources"`
}

// LoadSourcesFile はYAMLファイルからフィードソースを読み込む。
func LoadSourcesFile(path string) ([]model.FeedSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	for i := range f.Sources {
		f.Sources[i].URL = strings.TrimSpace(f.Sources[i].URL)
		if f.Sources[i].Name == "" {
			f.Sources[i].Name = sourceName(f.Sources[i].URL)
		}
	}

	if err := validateSources(f.Sources); err != nil {
		return nil, err
	}
	return f.Sources, nil
}

// ParseFeedURLs はカンマ区切りのURL一覧をフィードソースに変換する。
// ソース名はURLのホスト名になる。
func ParseFeedURLs(raw string) ([]model.FeedSource, error) {
	var sources []model.FeedSource
	for _, part := range strings.Split(raw, ",") {
		u := strings.TrimSpace(part)
		if u == "" {
			continue
		}
		sources = append(sources, model.FeedSource{Name: sourceName(u), URL: u})
	}

	// ホスト名が重複する場合は連番を付ける
	seen := make(map[string]int)
	for i := range sources {
		seen[sources[i].Name]++
		if n := seen[sources[i].Name]; n > 1 {
			sources[i].Name = fmt.Sprintf("%s-%d", sources[i].Name, n)
		}
	}

	if err := validateSources(sources); err != nil {
		return nil, err
	}
	return sources, nil
}

func validateSources(sources []model.FeedSource) error {
	if len(sources) == 0 {
		return ErrNoSources
	}

	names := make(map[string]struct{}, len(sources))
	for i, s := range sources {
		if s.URL == "" {
			return fmt.Errorf("sources[%d]: %w", i, ErrSourceMissingURL)
		}
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("sources[%d] %q: %w", i, s.URL, ErrSourceInvalidURL)
		}
		if _, dup := names[s.Name]; dup {
			return fmt.Errorf("sources[%d] %q: %w", i, s.Name, ErrDuplicateSourceName)
		}
		names[s.Name] = struct{}{}
	}
	return nil
}

// sourceName はURLのホスト名をソース名として返す。
func sourceName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
