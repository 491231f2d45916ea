package backup

import "time"

// Archive layout. Collections are serialized one JSON file each under
// collections/, assets keep their relative paths under assets/, and the
// manifest sits at the root so a reader can validate before extracting.
const (
	manifestName      = "manifest.json"
	collectionsPrefix = "collections/"
	assetsPrefix      = "assets/"

	manifestVersion = 1
)

// maxArchiveSize caps the declared uncompressed size of a restore upload.
const maxArchiveSize = 512 * 1024 * 1024

// manifest describes an archive's contents. Collections and Documents list
// the record-store tables and document keys present, so a restore can
// detect a truncated or foreign zip before touching anything.
type manifest struct {
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	Collections []string  `json:"collections"`
	Documents   []string  `json:"documents"`
	AssetCount  int       `json:"assetCount"`
}
