/*
Package atomicfile replaces a file in a way that never leaves a partially
written destination: data goes to a temporary file which is renamed over
the destination only if every Write() and the final Close() succeeded.

	func writeIndex(path string, d []byte) error {
		f, err := atomicfile.New(path)
		if err != nil {
			return err
		}
		// no-op after a successful Close()
		defer f.RemoveIfNotClosed()

		if _, err = f.Write(d); err != nil {
			return err
		}
		return f.Close()
	}

posindex.Save writes index files this way so that a crash while saving
leaves the previous index in place.
*/
package atomicfile
