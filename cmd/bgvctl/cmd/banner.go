package cmd

import (
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
)

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}
