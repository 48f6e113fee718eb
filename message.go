package main

const (
	MsgServiceName = "WildSnap Detection API"

	MsgEndpointNotFound = "Endpoint not found"

	MsgNoImage = "No image provided. Send a base64 encoded image in the \"image\" field or upload it as the \"file\" form field."

	MsgNoImages = "No images provided. Upload one or more \"files\" form fields or send an \"images\" list."

	MsgInvalidImage = "Failed to decode image. Supported formats are JPEG, PNG, GIF, BMP, TIFF and WebP."

	MsgInvalidJSON = "Request body is not valid JSON"

	MsgAllModelsFailed = "No model produced a result for this image"
)
