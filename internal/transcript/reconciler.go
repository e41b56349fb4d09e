package transcript

// Segment is the text derived for one span.
type Segment struct {
	Text   string
	Before string
	After  string
}

// Reconciler cuts span text and the two context windows. Before and After
// are the signed shifts applied to the whole span.
type Reconciler struct {
	Before int
	After  int
}

// NewReconciler returns a Reconciler with the given window shifts.
func NewReconciler(before, after int) Reconciler {
	return Reconciler{Before: before, After: after}
}

// Reconcile maps the span [start, end) onto text.
func (r Reconciler) Reconcile(text *Text, start, end int) Segment {
	return Segment{
		Text:   text.SpanText(start, end),
		Before: text.Window(start, end, r.Before),
		After:  text.Window(start, end, r.After),
	}
}
