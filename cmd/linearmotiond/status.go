package main

import (
	"io"

	"github.com/arlyon/linear-motion/pkg/deadletter"
	"github.com/arlyon/linear-motion/pkg/status"
	"github.com/arlyon/linear-motion/pkg/store"
)

// Status opens storePath with store.Open (a normal read-write open, which
// creates the buckets if missing), never calls Put/Delete, and
// pretty-prints entity/dead-letter state to w.
func Status(storePath string, w io.Writer) error {
	st, err := store.Open(storePath)
	if err != nil {
		return err
	}
	defer st.Close()

	dl, err := deadletter.Open(st.DB())
	if err != nil {
		return err
	}

	view := &status.View{Store: st, DeadLetter: dl}
	return view.Print(w)
}
