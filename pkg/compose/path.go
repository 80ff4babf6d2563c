package compose

import "path"

// ResolveAssetPath turns an authored asset path into an absolute workspace
// path. A leading slash is taken as absolute; anything else is joined to
// the directory of basePath. Dot segments are collapsed and ".." never
// climbs above the root.
func ResolveAssetPath(assetPath, basePath string) string {
	if path.IsAbs(assetPath) {
		return path.Clean(assetPath)
	}
	return path.Join("/", path.Dir(basePath), assetPath)
}
