//go:build !linux

package engine

func readahead(string) error {
	return nil
}
