package loaders

type ResourceType uint8

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeShader
)

// Resource is the raw content of an asset read from disk.
type Resource struct {
	Name     string
	FullPath string
	Type     ResourceType
	DataSize uint64
	Data     []byte
}
