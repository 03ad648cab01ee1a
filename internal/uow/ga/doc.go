// Package ga is the reference UnitOfWork: a genetic algorithm over
// fixed-length integer feature vectors.
//
// Features are encoded on the wire as a JSON array of ints; a Key is the
// hex SHA-256 digest of the sorted, canonically encoded vector. Crossover
// splits both parents at the midpoint and concatenates halves, sorted;
// Mutate replaces one position with a fresh value from the configured
// domain. The fitness function itself is pluggable (Config.Fitness),
// so this single type serves both the basic target-sum problem and a
// permutation-shaped problem like a travelling-salesperson route.
package ga
