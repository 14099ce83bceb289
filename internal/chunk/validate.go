package chunk

import "fmt"

// Validate walks a serialized chunk stream and checks that every chunk fits
// inside its parent and that container chunks are exactly tiled by their
// children.
func Validate(b []byte) error {
	return validate(b, 0)
}

func validate(b []byte, base int) error {
	for off := 0; off < len(b); {
		c, err := Read(b, off)
		if err != nil {
			return fmt.Errorf("at offset %d: %w", base, err)
		}
		if IsContainer(c.Type) {
			if err := validate(c.Body, base+off+c.HeaderSize()); err != nil {
				return err
			}
		}
		off += c.Size()
	}
	return nil
}
