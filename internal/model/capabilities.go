package model

import (
	"errors"
	"fmt"

	"github.com/signalnine/crucible/internal/data"
)

var ErrCannotHandle = errors.New("cannot handle data")

type Capabilities struct {
	NumericAttributes bool
	NominalAttributes bool
	StringAttributes  bool
	MissingValues     bool
	NominalClass      bool
	NumericClass      bool
	BinaryClassOnly   bool
}

// Test checks header against c. Failures wrap ErrCannotHandle.
func (c Capabilities) Test(header *data.Dataset) error {
	class := header.ClassAttribute()
	if class == nil {
		return fmt.Errorf("%w: no class attribute set", ErrCannotHandle)
	}
	switch class.Kind {
	case data.Nominal:
		if !c.NominalClass {
			return fmt.Errorf("%w: cannot handle nominal class", ErrCannotHandle)
		}
		if c.BinaryClassOnly && len(class.Values) > 2 {
			return fmt.Errorf("%w: cannot handle multi-valued nominal class", ErrCannotHandle)
		}
	case data.Numeric:
		if !c.NumericClass {
			return fmt.Errorf("%w: cannot handle numeric class", ErrCannotHandle)
		}
	}
	for i, a := range header.Attributes {
		if i == header.ClassIndex {
			continue
		}
		switch {
		case a.Kind == data.Numeric && !c.NumericAttributes:
			return fmt.Errorf("%w: cannot handle numeric attributes (%s)", ErrCannotHandle, a.Name)
		case a.Kind == data.Nominal && !c.NominalAttributes:
			return fmt.Errorf("%w: cannot handle nominal attributes (%s)", ErrCannotHandle, a.Name)
		case a.Kind == data.String && !c.StringAttributes:
			return fmt.Errorf("%w: cannot handle string attributes (%s)", ErrCannotHandle, a.Name)
		}
	}
	return nil
}
