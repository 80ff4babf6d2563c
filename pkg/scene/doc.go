// Package scene defines the prim tree produced by the USDA parser and
// consumed by the composer, the tessellator and the outline view.
// Trees are never mutated once built; composition produces new trees.
package scene
