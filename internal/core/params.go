package core

import (
	"fmt"
	"strings"
)

// ParseParamString applies a parameter string in the classic batch form
//
//	DSN=PROD.TABLES TABLE=T1 ENC=IBM-037 (REPL FORCE
//
// to p. Keyword values only fill fields that are still empty, so flags set
// earlier take precedence; options after "(" switch flags on.
func ParseParamString(s string, p *Params) error {
	options := false
	for _, tok := range strings.Fields(s) {
		if strings.HasPrefix(tok, "(") {
			options = true
			tok = strings.TrimPrefix(tok, "(")
			if tok == "" {
				continue
			}
		}
		tok = strings.TrimSuffix(tok, ")")

		if options {
			switch strings.ToUpper(tok) {
			case "REPL", "REPLACE":
				p.Replace = true
			case "FORCE":
				p.Force = true
			case "DRYRUN", "DRY-RUN":
				p.DryRun = true
			default:
				return usageError(fmt.Errorf("unknown option %q", tok))
			}
			continue
		}

		key, value, ok := strings.Cut(tok, "=")
		if !ok {
			return usageError(fmt.Errorf("parameter %q is not KEY=VALUE", tok))
		}
		switch strings.ToUpper(key) {
		case "DSN", "LIB", "LIBRARY":
			setIfEmpty(&p.Library, value)
		case "TABLE", "TBL":
			setIfEmpty(&p.Table, value)
		case "ENC", "ENCODING", "CODEPAGE":
			setIfEmpty(&p.Encoding, value)
		default:
			return usageError(fmt.Errorf("unknown parameter %q", key))
		}
	}
	return nil
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func usageError(err error) *Error {
	return &Error{Kind: KindSyntax, Op: "parameters", RC: 8, Reason: "SYNTAX", Err: err}
}
