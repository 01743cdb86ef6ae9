package gamedata

import (
	"github.com/rlch/cw"
	"github.com/rlch/cw/interner"
	"github.com/rlch/cw/model"
)

// collectParameters returns the parameter names an entity body uses, from
// $NAME$ and $NAME|fallback$ tokens and [[NAME] ... ] blocks.
func collectParameters(e *model.Entity) interner.Set {
	out := make(interner.Set)

	add := func(s string) {
		for _, name := range cw.ParameterNames(s) {
			out.Insert(name)
		}
	}

	e.Walk(func(e *model.Entity) bool {
		for _, list := range e.Properties.All() {
			for _, p := range list {
				add(p.Key)

				if _, ok := model.AsEntity(p.Value); !ok {
					add(model.Text(p.Value))
				}
			}
		}

		for _, v := range e.Items {
			if _, ok := model.AsEntity(v); !ok {
				add(model.Text(v))
			}
		}

		// [[NAME] ... ] tests whether the caller passed NAME.
		for _, c := range e.Conditionals {
			if c.Key != "" {
				out.Insert(c.Key)
			}
		}

		return true
	})

	return out
}
