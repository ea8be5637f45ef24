package snd

// elemValuePad is the offset of the value union past the element id.
const elemValuePad = 4
