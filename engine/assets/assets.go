package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
)

// Pending change notifications beyond this are dropped.
const changeBuffer = 64

type AssetInfo struct {
	Path       string
	Type       loaders.ResourceType
	LastLoaded time.Time
}

// AssetManager serves assets from a root directory and, when watching,
// reports the shaders that change on disk.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[loaders.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	changes  chan string
}

func NewAssetManager(root string) *AssetManager {
	am := &AssetManager{
		root:    filepath.Clean(root),
		assets:  make(map[string]AssetInfo),
		loaders: make(map[loaders.ResourceType]Loader),
		changes: make(chan string, changeBuffer),
		done:    make(chan struct{}),
	}
	am.registerLoader(loaders.ResourceTypeShader, &loaders.ShaderLoader{})
	return am
}

// Watch starts reporting changes below the root directory on Changes.
func (am *AssetManager) Watch() error {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	if am.fsnotify != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	am.fsnotify = w
	if err := am.watchRecursive(am.root); err != nil {
		w.Close()
		am.fsnotify = nil
		return errors.Wrapf(err, "watching %s", am.root)
	}
	am.wg.Add(1)
	go am.start()
	return nil
}

// Changes delivers the root relative names of created or rewritten shaders.
func (am *AssetManager) Changes() <-chan string {
	return am.changes
}

// Close stops the watcher. It is safe to call more than once.
func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	close(am.done)
	am.mutex.Unlock()

	am.wg.Wait()
	return nil
}

func (am *AssetManager) registerLoader(assetType loaders.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadShader returns the SPIR-V bytes of the named shader.
func (am *AssetManager) LoadShader(name string) ([]byte, error) {
	res, err := am.load(name, loaders.ResourceTypeShader)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (am *AssetManager) load(name string, resourceType loaders.ResourceType) (*loaders.Resource, error) {
	if t := determineAssetType(name); t != resourceType {
		return nil, errors.Mark(errors.Newf("%s is not a shader asset", name), core.ErrShaderLoad)
	}
	loader, ok := am.loaders[resourceType]
	if !ok {
		return nil, errors.Newf("no loader registered for asset type %d", resourceType)
	}

	path := filepath.Join(am.root, filepath.FromSlash(name))
	res, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[name] = AssetInfo{Path: path, Type: resourceType, LastLoaded: time.Now()}
	am.mutex.Unlock()
	return res, nil
}

// Loaded reports the assets read so far, keyed by name.
func (am *AssetManager) Loaded() map[string]AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	out := make(map[string]AssetInfo, len(am.assets))
	for k, v := range am.assets {
		out[k] = v
	}
	return out
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if e.Op&fsnotify.Create != 0 {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch %s: %s", e.Name, err.Error())
			}
			return
		}
	}
	// A removed directory cannot be stat'ed, so drop the watch blindly.
	if e.Op&fsnotify.Remove != 0 {
		_ = am.fsnotify.Remove(e.Name)
		am.removeAsset(e.Name)
		return
	}
	if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	name, ok := am.relative(e.Name)
	if !ok || determineAssetType(name) != loaders.ResourceTypeShader {
		return
	}
	select {
	case am.changes <- name:
	default:
		core.LogWarn("dropping change notification for %s", name)
	}
}

// watchRecursive adds the directory and all its sub-directories to the
// watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (am *AssetManager) relative(path string) (string, bool) {
	rel, err := filepath.Rel(am.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (am *AssetManager) removeAsset(path string) {
	name, ok := am.relative(path)
	if !ok {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, name)
}

func determineAssetType(path string) loaders.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return loaders.ResourceTypeShader
	default:
		return loaders.ResourceTypeNone
	}
}
