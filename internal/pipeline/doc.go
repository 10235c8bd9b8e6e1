// Package pipeline implements the LaTeX-to-HTML conversion engine.
//
// A conversion runs these stages in order:
//   - Preprocessing: line endings, comments, document wrapper, HTML escaping
//   - Label resolution from the .aux file written by the LaTeX compiler
//   - Environment extraction in two phases (theorems and proofs first, then
//     sections, figures, lists and listings over a masked copy)
//   - Rendering of each element to an HTML fragment, recursively for bodies
//   - Splicing fragments back into the text and wrapping paragraphs
//   - Reference linking (bare numbers in math, links in prose)
//   - The inline pass for accents, formatting commands and typography
//   - Document assembly into a full page with navigation
//
// Problems in the source never abort a conversion. They are collected by a
// Reporter as diagnostics and the affected text is left as close to the
// source as possible. PDF export and file handling live in the root package.
package pipeline
