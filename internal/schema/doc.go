// Package schema holds the column model shared by inference, comparison,
// transformation and the destination catalogs.
//
// # Column Shapes
//
// A [ColumnDefinition] is a name, a [LogicalType] and a [TypeModifier]. Columns
// discovered in a source file are [SourceColumnDefinition] values: the same
// definition plus the inference metadata collected while sampling (possible
// types, ordinal, numeric extrema, whether blanks were seen).
//
// Tables are generic over the column shape:
//
//	dst := schema.TableDefinition[schema.ColumnDefinition]{...}
//	src := schema.TableDefinition[schema.SourceColumnDefinition]{...}
//
// # Logical Types
//
// [LogicalType] is a closed enumeration. Every switch over it in this module is
// written to cover all members; [LogicalType.Family] groups them for rules that
// apply per family.
package schema
