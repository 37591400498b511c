package model

// Detection is one localized, classified object found by the detection
// engine, in the coordinate space of the original (pre-letterbox) frame.
type Detection struct {
	ClassID    int
	ClassName  string
	Confidence float32
	X1, Y1     float32
	X2, Y2     float32
}

// Width returns the bounding box width.
func (d Detection) Width() float32 { return d.X2 - d.X1 }

// Height returns the bounding box height.
func (d Detection) Height() float32 { return d.Y2 - d.Y1 }

// COCOClasses is the fixed 80-entry class name table the detection engine's
// model was trained against.
var COCOClasses = [80]string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck",
	"boat", "traffic light", "fire hydrant", "stop sign", "parking meter", "bench",
	"bird", "cat", "dog", "horse", "sheep", "cow", "elephant", "bear", "zebra",
	"giraffe", "backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee",
	"skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup",
	"fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch",
	"potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear",
	"hair drier", "toothbrush",
}
