package badger

import (
	"bytes"
	"strings"
)

// Key layout:
//
//	doc:{collection}\x00{id}  -> BSON-encoded DocumentRecord
//
// The NUL separator keeps collections whose names prefix one another
// ("faq" and "faq/2024") from sharing a scan range.
const (
	documentPrefix = "doc:"
	keySeparator   = 0x00
)

// makeDocumentKey generates the key for a record in collection.
func makeDocumentKey(collection, id string) []byte {
	buf := make([]byte, 0, len(documentPrefix)+len(collection)+1+len(id))
	buf = append(buf, documentPrefix...)
	buf = append(buf, collection...)
	buf = append(buf, keySeparator)
	return append(buf, id...)
}

// makeCollectionPrefix generates the scan prefix for every record in collection.
func makeCollectionPrefix(collection string) []byte {
	buf := make([]byte, 0, len(documentPrefix)+len(collection)+1)
	buf = append(buf, documentPrefix...)
	buf = append(buf, collection...)
	return append(buf, keySeparator)
}

// splitDocumentKey returns the collection and id encoded in key.
func splitDocumentKey(key []byte) (collection, id string, ok bool) {
	if !bytes.HasPrefix(key, []byte(documentPrefix)) {
		return "", "", false
	}
	rest := string(key[len(documentPrefix):])
	i := strings.IndexByte(rest, keySeparator)
	if i < 0 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// collectionUpperBound returns the first key after every record of collection.
func collectionUpperBound(collection string) []byte {
	buf := make([]byte, 0, len(documentPrefix)+len(collection)+1)
	buf = append(buf, documentPrefix...)
	buf = append(buf, collection...)
	return append(buf, keySeparator+1)
}
