package common

// SourceTimestampLayout is the timestamp fragment embedded in generated
// file names, e.g. 19-10_14-05.
const SourceTimestampLayout = "02-01_15-04"

// CategorySeparator joins the levels of a materialized category path.
const CategorySeparator = "/"
