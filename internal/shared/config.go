package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Recognized option names.
const (
	KeyVerbose        = "verbose"
	KeyImport         = "import"
	KeyDownload       = "download"
	KeyForceDownload  = "force_download"
	KeyKeepFiles      = "keep_files"
	KeyImportMode     = "import_mode"
	KeyCacheDir       = "cachedir"
	KeyOutTmpl        = "outtmpl"
	KeyYMSearchFormat = "ym_search_format"
	KeyCacheGlob      = "cache_glob"
	KeyBeetCommand    = "beet_command"
	KeyYtdlpCommand   = "ytdlp_command"
	KeyHistory        = "history"
	KeyHistoryDB      = "history_db"
	KeyRateLimit      = "rate_limit"
	KeyDownloader     = "youtubedl_config"
	KeyInfo           = "youtubedl_info_config"

	KeyQuiet             = "quiet"
	KeyKeepVideo         = "keepvideo"
	KeyRestrictFilenames = "restrictfilenames"
	KeyFormat            = "format"
	KeyPreferredCodec    = "preferredcodec"
	KeyPreferredQuality  = "preferredquality"
	KeyNoOverwrites      = "nooverwrites"
	KeyNoPostOverwrites  = "nopostoverwrites"
	KeyPlaylistItems     = "playlist_items"
	KeyDefaultSearch     = "default_search"
	KeySimulate          = "simulate"
)

const (
	ImportModeGroup     = "group"
	ImportModeSingleton = "singleton"
)

// ConfigEnv names the environment variable that points at the user's config file.
const ConfigEnv = "YDL_CONFIG"

// Options maps option names to values. Nested blocks are map[string]any.
type Options map[string]any

// Defaults returns the compiled-in option set. Every recognized option is present.
func Defaults() Options {
	return Options{
		KeyVerbose:        false,
		KeyImport:         true,
		KeyDownload:       true,
		KeyForceDownload:  false,
		KeyKeepFiles:      false,
		KeyImportMode:     ImportModeGroup,
		KeyCacheDir:       "~/.cache/ydl",
		KeyOutTmpl:        "%(id)s.%(ext)s",
		KeyYMSearchFormat: "https://music.youtube.com/search?q={artist}+{song}#songs",
		KeyCacheGlob:      "*.{opus,mp3,m4a,ogg,flac,webm}",
		KeyBeetCommand:    "beet",
		KeyYtdlpCommand:   "yt-dlp",
		KeyHistory:        true,
		KeyHistoryDB:      "~/.local/share/ydl/ydl.db",
		KeyRateLimit:      0,
		KeyDownloader: map[string]any{
			KeyVerbose:           false,
			KeyQuiet:             true,
			KeyKeepVideo:         false,
			KeyRestrictFilenames: true,
			KeyFormat:            "bestaudio[acodec=opus]/best[acodec=opus]",
			KeyPreferredCodec:    "opus",
			KeyPreferredQuality:  "192",
			KeyNoOverwrites:      true,
			KeyNoPostOverwrites:  true,
			KeyPlaylistItems:     "1",
			KeyDefaultSearch:     "ytsearch",
		},
		KeyInfo: map[string]any{
			KeyVerbose:       false,
			KeyQuiet:         true,
			KeySimulate:      true,
			KeyDefaultSearch: "ytsearch",
		},
	}
}

// Resolve layers overrides and then flags on top of defaults.
//
// Blocks present on both sides are merged one level deep; everything else is replaced.
// Unknown keys pass through. When the effective force_download is true, the downloader's
// nooverwrites and nopostoverwrites are both cleared. Inputs are never modified.
func Resolve(defaults, overrides, flags Options) Options {
	out := make(Options, len(defaults))
	for k, v := range defaults {
		out[k] = cloneValue(v)
	}

	for _, layer := range []Options{overrides, flags} {
		for k, v := range layer {
			current, currentIsBlock := asBlock(out[k])
			incoming, incomingIsBlock := asBlock(v)
			if currentIsBlock && incomingIsBlock {
				for kk, vv := range incoming {
					current[kk] = cloneValue(vv)
				}
				continue
			}
			out[k] = cloneValue(v)
		}
	}

	applyForceDownload(out)
	return out
}

func applyForceDownload(o Options) {
	if force, _ := o[KeyForceDownload].(bool); !force {
		return
	}

	block, ok := asBlock(o[KeyDownloader])
	if !ok {
		block = map[string]any{}
		o[KeyDownloader] = block
	}
	block[KeyNoOverwrites] = false
	block[KeyNoPostOverwrites] = false
}

func asBlock(v any) (map[string]any, bool) {
	switch b := v.(type) {
	case map[string]any:
		return b, true
	case Options:
		return map[string]any(b), true
	default:
		return nil, false
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case Options:
		return cloneValue(map[string]any(t))
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	case []map[string]any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// Block returns a copy of the nested block stored under key, or nil.
func (o Options) Block(key string) Options {
	b, ok := asBlock(o[key])
	if !ok {
		return nil
	}
	return Options(cloneValue(b).(map[string]any))
}

// Bool returns the boolean stored under key.
func (o Options) Bool(key string) (bool, bool) {
	b, ok := o[key].(bool)
	return b, ok
}

// String returns the string stored under key. Numbers are formatted, since TOML users
// write preferredquality = 192 as often as "192".
func (o Options) String(key string) (string, bool) {
	switch v := o[key].(type) {
	case string:
		return v, true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// Int returns the integer stored under key.
func (o Options) Int(key string) (int, bool) {
	switch v := o[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Settings is the typed, read-only view of an effective option set.
type Settings struct {
	Verbose        bool
	Import         bool
	Download       bool
	ForceDownload  bool
	KeepFiles      bool
	ImportMode     string
	CacheDir       string
	OutTmpl        string
	YMSearchFormat string
	CacheGlob      string
	BeetCommand    string
	YtdlpCommand   string
	History        bool
	HistoryDB      string
	RateLimit      int
	Downloader     DownloaderSettings
	Info           InfoSettings
}

// DownloaderSettings configures a fetch-and-transcode run.
type DownloaderSettings struct {
	Verbose           bool
	Quiet             bool
	KeepVideo         bool
	RestrictFilenames bool
	NoOverwrites      bool
	NoPostOverwrites  bool
	Format            string
	PreferredCodec    string
	PreferredQuality  string
	PlaylistItems     string
	DefaultSearch     string
	// OutputTemplate is the full path template, cachedir joined with outtmpl.
	OutputTemplate string
}

// InfoSettings configures a metadata-only lookup.
type InfoSettings struct {
	Verbose       bool
	Quiet         bool
	Simulate      bool
	DefaultSearch string
}

// NewSettings builds [Settings] from an effective option set. Missing or mistyped values
// fall back to [Defaults].
func NewSettings(o Options) Settings {
	d := Defaults()
	dl := optionReader{o: o.Block(KeyDownloader), d: d.Block(KeyDownloader)}
	info := optionReader{o: o.Block(KeyInfo), d: d.Block(KeyInfo)}
	r := optionReader{o: o, d: d}

	s := Settings{
		Verbose:        r.bool(KeyVerbose),
		Import:         r.bool(KeyImport),
		Download:       r.bool(KeyDownload),
		ForceDownload:  r.bool(KeyForceDownload),
		KeepFiles:      r.bool(KeyKeepFiles),
		ImportMode:     r.string(KeyImportMode),
		CacheDir:       ExpandHome(r.string(KeyCacheDir)),
		OutTmpl:        r.string(KeyOutTmpl),
		YMSearchFormat: r.string(KeyYMSearchFormat),
		CacheGlob:      r.string(KeyCacheGlob),
		BeetCommand:    r.string(KeyBeetCommand),
		YtdlpCommand:   r.string(KeyYtdlpCommand),
		History:        r.bool(KeyHistory),
		HistoryDB:      ExpandHome(r.string(KeyHistoryDB)),
		RateLimit:      r.int(KeyRateLimit),
		Downloader: DownloaderSettings{
			Verbose:           dl.bool(KeyVerbose),
			Quiet:             dl.bool(KeyQuiet),
			KeepVideo:         dl.bool(KeyKeepVideo),
			RestrictFilenames: dl.bool(KeyRestrictFilenames),
			NoOverwrites:      dl.bool(KeyNoOverwrites),
			NoPostOverwrites:  dl.bool(KeyNoPostOverwrites),
			Format:            dl.string(KeyFormat),
			PreferredCodec:    dl.string(KeyPreferredCodec),
			PreferredQuality:  dl.string(KeyPreferredQuality),
			PlaylistItems:     dl.string(KeyPlaylistItems),
			DefaultSearch:     dl.string(KeyDefaultSearch),
		},
		Info: InfoSettings{
			Verbose:       info.bool(KeyVerbose),
			Quiet:         info.bool(KeyQuiet),
			Simulate:      info.bool(KeySimulate),
			DefaultSearch: info.string(KeyDefaultSearch),
		},
	}

	if s.ImportMode != ImportModeGroup && s.ImportMode != ImportModeSingleton {
		s.ImportMode = ImportModeGroup
	}
	if s.RateLimit < 0 {
		s.RateLimit = 0
	}
	s.Downloader.OutputTemplate = filepath.Join(s.CacheDir, s.OutTmpl)
	return s
}

type optionReader struct {
	o Options
	d Options
}

func (r optionReader) bool(key string) bool {
	if v, ok := r.o.Bool(key); ok {
		return v
	}
	v, _ := r.d.Bool(key)
	return v
}

func (r optionReader) string(key string) string {
	if v, ok := r.o.String(key); ok {
		return v
	}
	v, _ := r.d.String(key)
	return v
}

func (r optionReader) int(key string) int {
	if v, ok := r.o.Int(key); ok {
		return v
	}
	v, _ := r.d.Int(key)
	return v
}

// LoadEnv reads a .env file from the working directory when one exists.
func LoadEnv() {
	_ = godotenv.Load()
}

// ConfigPath picks the config file location: the explicit flag value, then $YDL_CONFIG,
// then ~/.config/ydl/config.toml.
func ConfigPath(flagValue string) string {
	if flagValue != "" {
		return ExpandHome(flagValue)
	}
	if env := os.Getenv(ConfigEnv); env != "" {
		return ExpandHome(env)
	}
	return ExpandHome("~/.config/ydl/config.toml")
}

// LoadOverrides reads user overrides from a TOML file. A missing file yields no overrides.
func LoadOverrides(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Options{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	overrides := Options{}
	if err := toml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return overrides, nil
}

// LoadUserConfig resolves the config path with [ConfigPath] and reads it. A missing file is
// only an error when the path came from the flag.
func LoadUserConfig(flagValue string) (string, Options, error) {
	path := ConfigPath(flagValue)
	if flagValue != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return path, nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
	}

	overrides, err := LoadOverrides(path)
	if err != nil {
		return path, nil, err
	}
	return path, overrides, nil
}

// WriteOptions encodes an option set as TOML.
func WriteOptions(w io.Writer, o Options) error {
	if err := toml.NewEncoder(w).Encode(map[string]any(o)); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
