//go:build !linux

package catfs

const directIOSupported = false

func directIOFlag() int { return 0 }
