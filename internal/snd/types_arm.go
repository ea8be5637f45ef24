package snd

// elemValuePad is the offset of the value union past the element id.
// The ARM EABI aligns long long to 8 bytes.
const elemValuePad = 8
