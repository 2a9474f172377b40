package main

import "tools.zach/dev/sigflag/internal/paths"

// DataPaths aliases [paths.DataDir] so daemon code can use the path helpers
// without qualifying the internal package, where the name paths is taken by
// local variables.
type DataPaths = paths.DataDir
