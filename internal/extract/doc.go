// Package extract turns unstructured resume text into a ResumeRecord.
//
// Text is first normalized into logical lines, then a single scan routes the
// lines to per-section collectors. Skill and education sections are blocks:
// a start keyword opens them and a stop keyword closes them. Experience and
// ability lines are matched one at a time. Dates are read as "Month Year"
// tokens and durations are whole months, never negative.
package extract
