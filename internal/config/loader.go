package config

import (
	"io/fs"
	"path"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// FileName is the name of configuration files looked up by [Loader].
const FileName = "mathedit.yaml"

var ErrRootConfigNotFound = errors.New("root configuration file not found")

// Loader loads configuration files from a file system. Besides the root
// configuration file, every directory on the way to a document can carry
// its own file overriding the settings of its parents.
type Loader struct {
	fsys       fs.FS
	configName string
	logger     *zap.Logger
}

type LoaderOption func(*Loader)

func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithConfigName changes the looked up file name from [FileName].
func WithConfigName(name string) LoaderOption {
	return func(l *Loader) {
		l.configName = name
	}
}

func NewLoader(fsys fs.FS, opts ...LoaderOption) *Loader {
	l := &Loader{
		fsys:       fsys,
		configName: FileName,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.configName == "" {
		panic("config name is not set")
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}

	return l
}

func (l *Loader) RootConfig() ([]byte, error) {
	data, err := fs.ReadFile(l.fsys, l.configName)
	if err != nil {
		return nil, ErrRootConfigNotFound
	}
	return data, nil
}

// FindConfigChain returns the contents of configuration files applying to
// name, starting with the root one.
func (l *Loader) FindConfigChain(name string) ([][]byte, error) {
	paths, err := l.findConfigFilesOnPath(name)
	if err != nil {
		return nil, err
	}
	return l.readFiles(paths...)
}

// Load returns the configuration applying to name. Without any
// configuration files it is [Default].
func (l *Loader) Load(name string) (*Config, error) {
	chain, err := l.FindConfigChain(name)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseYAML(chain...)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("loaded config", zap.String("name", name), zap.Int("files", len(chain)))
	return cfg, nil
}

func (l *Loader) findConfigFilesOnPath(name string) (result []string, _ error) {
	dir, err := l.parsePath(name)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("finding config files on path", zap.String("dir", dir))

	if _, err := fs.Stat(l.fsys, l.configName); err == nil {
		result = append(result, l.configName)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.WithStack(err)
	}

	if dir == "." {
		return result, nil
	}

	curDir := ""
	for _, fragment := range strings.Split(dir, "/") {
		curDir = path.Join(curDir, fragment)

		configPath := path.Join(curDir, l.configName)
		_, err := fs.Stat(l.fsys, configPath)
		if err == nil {
			result = append(result, configPath)
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("nested configuration file not readable", zap.String("path", configPath), zap.Error(err))
			return nil, errors.WithStack(err)
		}
	}

	l.logger.Debug("found config files on path", zap.String("dir", dir), zap.Strings("files", result))

	return result, nil
}

// parsePath returns the directory of name within the file system.
func (l *Loader) parsePath(name string) (string, error) {
	if name == "" {
		name = "."
	}
	name = path.Clean(name)
	if !fs.ValidPath(name) {
		return "", errors.Errorf("path %q is outside of the config root", name)
	}

	info, err := fs.Stat(l.fsys, name)
	if err != nil {
		return "", errors.Wrapf(err, "failed to get the path info for %q", name)
	}

	if info.IsDir() {
		return name, nil
	}
	return path.Dir(name), nil
}

func (l *Loader) readFiles(paths ...string) (result [][]byte, _ error) {
	for _, p := range paths {
		data, err := fs.ReadFile(l.fsys, p)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		result = append(result, data)
	}
	return result, nil
}
