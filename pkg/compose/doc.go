// Package compose resolves references and payloads across files.
//
// A root file's prims are parsed, then every reference or payload arc is
// followed: the target file is parsed fresh, its own arcs are resolved
// recursively, and deep copies of the targeted prims are appended to the
// arc owner's ResolvedChildren. Failures never abort composition; they are
// collected as Error values and the affected subtree is left out.
package compose
