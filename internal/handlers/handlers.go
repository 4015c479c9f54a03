// Package handlers adapts the runtime core to an HTTP surface, in the
// shape of the teacher's health/predict handlers: CORS-wrapped
// http.HandlerFunc values, multipart image uploads decoded with the
// stdlib image package and resized with nfnt/resize.
package handlers

import (
	"encoding/json"
	"fmt"
	stdimage "image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/nfnt/resize"

	babbleimage "github.com/Brownie44l1/babble-runtime/internal/image"
	"github.com/Brownie44l1/babble-runtime/internal/runtime"
	"github.com/Brownie44l1/babble-runtime/internal/zone"
)

// previewMaxDim bounds the raster an uploaded snapshot is resized to
// before it is wrapped in an image.Descriptor; it is independent of the
// model's own input_size, which the runtime's resampler applies later.
const previewMaxDim = 512

// Handler wires the runtime core to net/http. Streaming on_data
// notifications is handled separately by Hub, installed as the
// runtime's OnDataFunc and registered on its own /stream route.
type Handler struct {
	rt *runtime.Runtime
}

// NewHandler builds a Handler serving rt.
func NewHandler(rt *runtime.Runtime) *Handler {
	return &Handler{rt: rt}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// zoneNames maps the wire zone names accepted in form fields to zone.Zone.
var zoneNames = map[string]zone.Zone{
	"left_eye":  zone.LeftEye,
	"right_eye": zone.RightEye,
	"mouth":     zone.Mouth,
}

func parseZones(s string) (zone.Zones, error) {
	var zs zone.Zones
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		z, ok := zoneNames[name]
		if !ok {
			return 0, fmt.Errorf("unknown zone %q", name)
		}
		zs = zs.With(z)
	}
	return zs, nil
}

// LoadModel handles POST /model: a multipart form with a "model" file
// field and a "zones" field (e.g. "mouth" or "left_eye,right_eye").
func (h *Handler) LoadModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	zs, err := parseZones(r.FormValue("zones"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("model")
	if err != nil {
		http.Error(w, "No model file provided. Use 'model' as the form field name", http.StatusBadRequest)
		return
	}
	defer file.Close()
	log.Printf("Loading model %s (%d bytes) for zones %#x", header.Filename, header.Size, uint8(zs))

	buf := make([]byte, 0, header.Size)
	tmp := make([]byte, 32<<10)
	for {
		n, rerr := file.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if rerr != nil {
			break
		}
	}

	if !h.rt.LoadModel(buf, zs) {
		http.Error(w, "Model load failed, see server log", http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"loaded": true, "zones": uint8(zs)})
}

// decodeDescriptor decodes an uploaded snapshot, resizes it to a bounded
// preview raster, and wraps it in an identity-transform image.Descriptor
// addressed to z. The preview is always 8-bit RGBA; luma weights recover
// a single grayscale plane from it, the same convention the original
// teacher handler used for 3-channel normalization.
func decodeDescriptor(file multipartFile, z zone.Zone) (*babbleimage.Descriptor, error) {
	img, _, err := stdimage.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}
	bounds := img.Bounds()
	w, hgt := uint(bounds.Dx()), uint(bounds.Dy())
	if w > previewMaxDim || hgt > previewMaxDim {
		if w > hgt {
			hgt = hgt * previewMaxDim / w
			w = previewMaxDim
		} else {
			w = w * previewMaxDim / hgt
			hgt = previewMaxDim
		}
	}
	preview := resize.Resize(w, hgt, img, resize.Lanczos3)
	pb := preview.Bounds()
	width, height := pb.Dx(), pb.Dy()
	data := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := preview.At(pb.Min.X+x, pb.Min.Y+y).RGBA()
			o := (y*width + x) * 4
			data[o+0] = byte(r >> 8)
			data[o+1] = byte(g >> 8)
			data[o+2] = byte(b >> 8)
			data[o+3] = byte(a >> 8)
		}
	}
	return &babbleimage.Descriptor{
		Data:   data,
		Size:   [2]uint32{uint32(width), uint32(height)},
		Stride: [2]uint{4, uint(width) * 4},
		Planes: [4]babbleimage.Plane{
			{Offset: 0, Weight: 0.299},
			{Offset: 1, Weight: 0.587},
			{Offset: 2, Weight: 0.114},
			{Offset: 3, Weight: 0},
		},
		Transform: babbleimage.Identity,
		Zone:      z,
	}, nil
}

type multipartFile interface {
	Read(p []byte) (int, error)
}

// PushFrame handles POST /frame: a multipart form carrying one image
// file per addressed zone (field names "left_eye", "right_eye",
// "mouth") plus a "timestamp" field.
func (h *Handler) PushFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	ts, err := strconv.ParseInt(r.FormValue("timestamp"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid or missing 'timestamp' field", http.StatusBadRequest)
		return
	}

	var images []babbleimage.Descriptor
	for name, z := range zoneNames {
		file, _, err := r.FormFile(name)
		if err != nil {
			continue
		}
		desc, err := decodeDescriptor(file, z)
		file.Close()
		if err != nil {
			http.Error(w, fmt.Sprintf("zone %s: %v", name, err), http.StatusBadRequest)
			return
		}
		images = append(images, *desc)
	}
	if len(images) == 0 {
		http.Error(w, "No zone image fields provided", http.StatusBadRequest)
		return
	}

	submitted := h.rt.PushFrame(images, ts)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"submitted": uint8(submitted)})
	if submitted == 0 {
		log.Printf("push_frame rejected, see server log for the failing validation")
	}
}

// GetParams handles GET /params?first=<index>&count=<n>.
func (h *Handler) GetParams(w http.ResponseWriter, r *http.Request) {
	first, _ := strconv.Atoi(r.URL.Query().Get("first"))
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || count <= 0 {
		count = int(zone.ParamCount)
	}
	out := make([]float32, count)
	ts := h.rt.GetParams(zone.Param(first), out)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"timestamp": ts, "params": out})
}

// GetGazes handles GET /gazes.
func (h *Handler) GetGazes(w http.ResponseWriter, r *http.Request) {
	var gazes [2][4]float32
	ts := h.rt.GetGazes(&gazes)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"timestamp": ts, "left": gazes[0], "right": gazes[1]})
}
