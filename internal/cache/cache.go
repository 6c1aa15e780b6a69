package cache

// Memo is a string-to-string memo table shared across goroutines
type Memo interface {
	Get(key string) (string, bool)
	Set(key string, value string)
	Len() int
}

// Key builds a namespaced, versioned memo key.
// Bumping the version invalidates entries computed under an older rule table.
func Key(namespace, version, key string) string {
	return namespace + ":" + version + ":" + key
}
