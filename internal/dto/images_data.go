// ImagesData is the response payload of the image listing.
package dto

type ImagesData struct {
	Images []ImageInfo `json:"images"`
	Length int         `json:"length"`
}
