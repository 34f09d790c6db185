// Package wykoj holds the domain model for the WYKOJ online judge:
// tasks, submissions, verdicts, contests and the grading configuration
// shared by the storage, grader and API layers.
package wykoj

const Version = "v2.0.0"
