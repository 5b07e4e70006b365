package manifest

import (
	"fmt"
	"strings"
	"unicode"
)

// ToPascalCase converts a string to PascalCase.
// "my-app" -> "MyApp", "models" -> "Models", "myApp" -> "MyApp"
func ToPascalCase(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		b.WriteString(strings.ToUpper(w[:1]) + strings.ToLower(w[1:]))
	}
	return b.String()
}

// PackageName derives a Java package segment from a project name.
// "my-app" -> "myapp", "MyApp" -> "myapp". A leading digit or a reserved
// word gets a trailing underscore.
func PackageName(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		for _, r := range w {
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
				b.WriteRune(unicode.ToLower(r))
			}
		}
	}
	name := b.String()
	if name == "" {
		return "app"
	}
	if unicode.IsDigit(rune(name[0])) || IsReservedWord(name) {
		name = "_" + name
	}
	return name
}

// words splits s on '-', '_' and lower-to-upper case boundaries.
func words(s string) []string {
	var out []string
	current := ""
	for i, r := range s {
		if r == '-' || r == '_' {
			if current != "" {
				out = append(out, current)
				current = ""
			}
			continue
		}
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(s[i-1])
			if prev >= 'a' && prev <= 'z' {
				out = append(out, current)
				current = ""
			}
		}
		current += string(r)
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}

// reservedWords lists the Java and Groovy keywords that cannot appear as a
// package segment.
var reservedWords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true,
	"byte": true, "case": true, "catch": true, "char": true,
	"class": true, "const": true, "continue": true, "def": true,
	"default": true, "do": true, "double": true, "else": true,
	"enum": true, "extends": true, "false": true, "final": true,
	"finally": true, "float": true, "for": true, "goto": true,
	"if": true, "implements": true, "import": true, "in": true,
	"instanceof": true, "int": true, "interface": true, "long": true,
	"native": true, "new": true, "null": true, "package": true,
	"private": true, "protected": true, "public": true, "return": true,
	"short": true, "static": true, "strictfp": true, "super": true,
	"switch": true, "synchronized": true, "this": true, "throw": true,
	"throws": true, "trait": true, "transient": true, "true": true,
	"try": true, "void": true, "volatile": true, "while": true,
}

// IsReservedWord reports whether name is a Java or Groovy keyword.
func IsReservedWord(name string) bool {
	return reservedWords[name]
}

// ValidatePackage checks a dotted package name. The empty package is valid.
func ValidatePackage(pkg string) error {
	if pkg == "" {
		return nil
	}
	for _, seg := range strings.Split(pkg, ".") {
		if seg == "" {
			return fmt.Errorf("package %q has an empty segment", pkg)
		}
		if IsReservedWord(seg) {
			return fmt.Errorf("package %q uses reserved word %q", pkg, seg)
		}
		for i, r := range seg {
			if !(r == '_' || r == '$' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r))) {
				return fmt.Errorf("package %q: invalid character %q in %q", pkg, r, seg)
			}
		}
	}
	return nil
}
