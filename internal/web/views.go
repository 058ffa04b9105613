package web

//go:generate templ generate

import "github.com/JonMunkholm/tblimport/internal/core"

func tableTitle(info core.TableInfo) string {
	return info.Library + "(" + info.Table + ")"
}

func rowNoun(n int) string {
	if n == 1 {
		return "row"
	}
	return "rows"
}
