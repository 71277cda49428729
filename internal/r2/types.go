package r2

import (
	"path"
	"strings"
)

// archivePrefix holds temporary archives, outside any browsable prefix
const archivePrefix = ".rbrowse-archives/"

// keyspace maps virtual browser paths onto object keys. Folders are key
// prefixes ending in "/"; an empty object at that key marks an empty folder.
type keyspace struct {
	root   string
	prefix string
}

func newKeyspace(root, prefix string) keyspace {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return keyspace{root: path.Clean("/" + root), prefix: prefix}
}

// contains reports whether virtual lies at or under the root
func (k keyspace) contains(virtual string) bool {
	clean := path.Clean("/" + virtual)
	return clean == k.root || strings.HasPrefix(clean, k.root+"/")
}

// objectKey is the key of a file at virtual
func (k keyspace) objectKey(virtual string) string {
	rel := strings.TrimPrefix(path.Clean("/"+virtual), k.root)
	return k.prefix + strings.TrimPrefix(rel, "/")
}

// folderKey is the key prefix of a folder at virtual ("" for an unprefixed root)
func (k keyspace) folderKey(virtual string) string {
	key := k.objectKey(virtual)
	if key == "" || strings.HasSuffix(key, "/") {
		return key
	}
	return key + "/"
}

// hidden reports keys the browser never lists
func (k keyspace) hidden(key string) bool {
	return strings.HasPrefix(key, archivePrefix)
}
