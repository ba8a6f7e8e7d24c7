// Package charts renders the dashboard figures as SVG with gonum/plot.
//
// Renderers take already computed values (daily aggregates, metrics, box
// statistics) and never touch the dataset, so the HTTP layer can draw a
// chart straight from a snapshot.
package charts
